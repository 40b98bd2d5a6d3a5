package recommend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sanskriti-setu/setu/backend/recommend"
	"github.com/sanskriti-setu/setu/backend/recommend/mocks"
)

var (
	asha  = recommend.Profile{UserID: 1, State: "Kerala", CulturalInterests: []string{"Cuisine", "Festivals"}}
	ravi  = recommend.Profile{UserID: 2, State: "Kerala", CulturalInterests: []string{"Cuisine"}}
	dorji = recommend.Profile{UserID: 3, State: "Sikkim", Hobbies: []string{"Trekking"}}
	maya  = recommend.Profile{UserID: 4, State: "Kerala", CulturalInterests: []string{"Cuisine", "Festivals"}}
)

func TestNewService(t *testing.T) {
	t.Run("requires a repository", func(t *testing.T) {
		svc, err := recommend.NewService(nil)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("defaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc, err := recommend.NewService(mocks.NewMockRepository(ctrl))
		require.NoError(t, err)
		assert.Equal(t, recommend.DefaultLimit, svc.Limit())
	})

	t.Run("ignores non-positive options", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc, err := recommend.NewService(mocks.NewMockRepository(ctrl),
			recommend.WithLimit(0), recommend.WithPoolSize(-3), recommend.WithObserver(nil))
		require.NoError(t, err)
		assert.Equal(t, recommend.DefaultLimit, svc.Limit())
	})
}

func TestService_ForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks the pool with the default limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		obs := mocks.NewMockObserver(ctrl)

		repo.EXPECT().CurrentProfile(gomock.Any(), 1).Return(asha, nil)
		repo.EXPECT().CandidatePool(gomock.Any(), 25).Return([]recommend.Profile{asha, ravi, dorji, maya}, nil)
		obs.EXPECT().ObserveRecommendation(recommend.OutcomeOK, 4, gomock.Any())

		svc, err := recommend.NewService(repo, recommend.WithLimit(2), recommend.WithPoolSize(25), recommend.WithObserver(obs))
		require.NoError(t, err)

		got, err := svc.ForUser(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 4, got[0].UserID)
		assert.Equal(t, 1.0, got[0].Similarity)
		assert.Equal(t, 2, got[1].UserID)
	})

	t.Run("explicit limit overrides the default", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)

		repo.EXPECT().CurrentProfile(gomock.Any(), 1).Return(asha, nil)
		repo.EXPECT().CandidatePool(gomock.Any(), recommend.DefaultPoolSize).Return([]recommend.Profile{asha, ravi, dorji, maya}, nil)

		svc, err := recommend.NewService(repo)
		require.NoError(t, err)

		got, err := svc.ForUser(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 4, got[0].UserID)
	})

	t.Run("missing profile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		obs := mocks.NewMockObserver(ctrl)

		repo.EXPECT().CurrentProfile(gomock.Any(), 9).
			Return(recommend.Profile{}, errors.New("user 9: "+recommend.ErrProfileNotFound.Error()))
		obs.EXPECT().ObserveRecommendation(recommend.OutcomeError, 0, gomock.Any())

		svc, err := recommend.NewService(repo, recommend.WithObserver(obs))
		require.NoError(t, err)

		_, err = svc.ForUser(ctx, 9, 5)
		require.Error(t, err)
		assert.False(t, errors.Is(err, recommend.ErrProfileNotFound), "unwrapped text must not match")
	})

	t.Run("wrapped not found is reported as not_found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		obs := mocks.NewMockObserver(ctrl)

		repo.EXPECT().CurrentProfile(gomock.Any(), 9).
			Return(recommend.Profile{}, errors.Join(errors.New("user 9"), recommend.ErrProfileNotFound))
		obs.EXPECT().ObserveRecommendation(recommend.OutcomeNotFound, 0, gomock.Any())

		svc, err := recommend.NewService(repo, recommend.WithObserver(obs))
		require.NoError(t, err)

		got, err := svc.ForUser(ctx, 9, 5)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, recommend.ErrProfileNotFound)
		assert.ErrorContains(t, err, "load current profile")
	})

	t.Run("pool failure is wrapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		obs := mocks.NewMockObserver(ctrl)
		boom := errors.New("connection reset")

		repo.EXPECT().CurrentProfile(gomock.Any(), 1).Return(asha, nil)
		repo.EXPECT().CandidatePool(gomock.Any(), gomock.Any()).Return(nil, boom)
		obs.EXPECT().ObserveRecommendation(recommend.OutcomeError, 0, gomock.Any())

		svc, err := recommend.NewService(repo, recommend.WithObserver(obs))
		require.NoError(t, err)

		got, err := svc.ForUser(ctx, 1, 5)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "load candidate pool")
	})

	t.Run("empty pool is not an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)

		repo.EXPECT().CurrentProfile(gomock.Any(), 1).Return(asha, nil)
		repo.EXPECT().CandidatePool(gomock.Any(), gomock.Any()).Return(nil, nil)

		svc, err := recommend.NewService(repo)
		require.NoError(t, err)

		got, err := svc.ForUser(ctx, 1, 5)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("context is passed through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		type key struct{}
		reqCtx := context.WithValue(ctx, key{}, "req")

		repo.EXPECT().CurrentProfile(reqCtx, 1).Return(asha, nil)
		repo.EXPECT().CandidatePool(reqCtx, gomock.Any()).Return([]recommend.Profile{ravi}, nil)

		svc, err := recommend.NewService(repo)
		require.NoError(t, err)

		_, err = svc.ForUser(reqCtx, 1, 5)
		require.NoError(t, err)
	})
}
