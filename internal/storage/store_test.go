package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

type SessionStoreTestSuite struct {
	suite.Suite
	store *SessionStore
	ctx   context.Context
}

func (suite *SessionStoreTestSuite) SetupTest() {
	store, err := Open(":memory:")
	require.NoError(suite.T(), err, "failed to open session store")
	suite.store = store
	suite.ctx = context.Background()
}

func (suite *SessionStoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func testSession(token string) *backend.Session {
	return &backend.Session{
		AccessToken:  "access-" + token,
		RefreshToken: "refresh-" + token,
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Millisecond),
		Identity:     backend.Identity{ID: "id-" + token, Email: token + "@efarina.tv", Name: "Ann"},
	}
}

func (suite *SessionStoreTestSuite) TestLoadEmpty() {
	sess, err := suite.store.Load(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), sess)
}

func (suite *SessionStoreTestSuite) TestSaveAndLoad() {
	want := testSession("a")
	require.NoError(suite.T(), suite.store.Save(suite.ctx, want))

	got, err := suite.store.Load(suite.ctx)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), want.AccessToken, got.AccessToken)
	assert.Equal(suite.T(), want.RefreshToken, got.RefreshToken)
	assert.Equal(suite.T(), want.Identity.ID, got.Identity.ID)
	assert.Equal(suite.T(), want.Identity.Email, got.Identity.Email)
	assert.Equal(suite.T(), want.Identity.Name, got.Identity.Name)
	assert.True(suite.T(), want.ExpiresAt.Equal(got.ExpiresAt))
}

func (suite *SessionStoreTestSuite) TestSaveReplaces() {
	require.NoError(suite.T(), suite.store.Save(suite.ctx, testSession("a")))
	require.NoError(suite.T(), suite.store.Save(suite.ctx, testSession("b")))

	got, err := suite.store.Load(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "id-b", got.Identity.ID)
}

func (suite *SessionStoreTestSuite) TestClear() {
	require.NoError(suite.T(), suite.store.Save(suite.ctx, testSession("a")))
	require.NoError(suite.T(), suite.store.Clear(suite.ctx))

	got, err := suite.store.Load(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreTestSuite))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), testSession("a")))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-a", got.AccessToken)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
