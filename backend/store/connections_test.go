package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	const me, peer = 1, 2
	outgoing := func(s Status) *Connection { return &Connection{ID: 7, RequesterID: me, AddresseeID: peer, Status: s} }
	incoming := func(s Status) *Connection { return &Connection{ID: 7, RequesterID: peer, AddresseeID: me, Status: s} }

	tests := []struct {
		name   string
		cur    *Connection
		action Action
		want   Decision
		err    error
	}{
		{"request creates pending", nil, ActionRequest, Decision{Status: StatusPending, Create: true}, nil},
		{"request twice is a no-op", outgoing(StatusPending), ActionRequest, Decision{Status: StatusPending}, nil},
		{"mutual request accepts", incoming(StatusPending), ActionRequest, Decision{Status: StatusAccepted, Changed: true}, nil},
		{"request when connected", incoming(StatusAccepted), ActionRequest, Decision{Status: StatusAccepted}, nil},
		{"request after decline", incoming(StatusDeclined), ActionRequest, Decision{}, ErrInvalidTransition},
		{"request after disconnect", outgoing(StatusDisconnected), ActionRequest, Decision{}, ErrInvalidTransition},

		{"accept incoming", incoming(StatusPending), ActionAccept, Decision{Status: StatusAccepted, Changed: true}, nil},
		{"accept own request", outgoing(StatusPending), ActionAccept, Decision{}, ErrNotFound},
		{"accept nothing", nil, ActionAccept, Decision{}, ErrNotFound},
		{"accept twice", outgoing(StatusAccepted), ActionAccept, Decision{Status: StatusAccepted}, nil},
		{"accept declined", incoming(StatusDeclined), ActionAccept, Decision{}, ErrInvalidTransition},

		{"decline incoming", incoming(StatusPending), ActionDecline, Decision{Status: StatusDeclined, Changed: true}, nil},
		{"decline own request", outgoing(StatusPending), ActionDecline, Decision{}, ErrNotFound},
		{"decline twice", incoming(StatusDeclined), ActionDecline, Decision{Status: StatusDeclined}, nil},
		{"decline accepted", incoming(StatusAccepted), ActionDecline, Decision{}, ErrInvalidTransition},

		{"cancel own request", outgoing(StatusPending), ActionRemove, Decision{Status: StatusDeclined, Changed: true}, nil},
		{"cancel incoming request", incoming(StatusPending), ActionRemove, Decision{}, ErrNotFound},
		{"disconnect", incoming(StatusAccepted), ActionRemove, Decision{Status: StatusDisconnected, Changed: true}, nil},
		{"disconnect twice", outgoing(StatusDisconnected), ActionRemove, Decision{Status: StatusDisconnected}, nil},
		{"remove declined", outgoing(StatusDeclined), ActionRemove, Decision{}, ErrInvalidTransition},
		{"remove nothing", nil, ActionRemove, Decision{}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(tt.cur, me, tt.action)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown action", func(t *testing.T) {
		_, err := Decide(outgoing(StatusPending), me, Action("poke"))
		assert.Error(t, err)
	})
}

func TestConnectionPeer(t *testing.T) {
	c := Connection{RequesterID: 3, AddresseeID: 8}
	assert.Equal(t, 8, c.Peer(3))
	assert.Equal(t, 3, c.Peer(8))
}
