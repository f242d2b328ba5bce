package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-gin-microblog/internal/domain"
	"go-gin-microblog/internal/mailer"
	"go-gin-microblog/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Relationship{}, &domain.Micropost{}))
	return db
}

type fixture struct {
	db    *gorm.DB
	queue *mailer.ChanQueue
	users *UserService
	rels  *RelationshipService
	feed  *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	userRepo := repo.NewUserRepo(db)
	queue := mailer.NewChanQueue(16)
	return &fixture{
		db:    db,
		queue: queue,
		users: NewUserService(userRepo, queue, nil, zap.NewNop()),
		rels:  NewRelationshipService(repo.NewRelationshipRepo(db), userRepo),
		feed:  NewFeedService(repo.NewMicropostRepo(db), userRepo),
	}
}

// register + confirm，返回已可登录的用户
func (f *fixture) confirmedUser(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := f.users.Register(t.Context(), name, email, "secret1", "secret1")
	require.NoError(t, err)
	require.NotNil(t, u.ConfirmationHash)
	u, err = f.users.ConfirmRegistration(t.Context(), u.ID, *u.ConfirmationHash)
	require.NoError(t, err)
	return u
}

func (f *fixture) drainQueue(t *testing.T) []mailer.Job {
	t.Helper()
	var jobs []mailer.Job
	for {
		select {
		case j := <-f.queue.Chan():
			jobs = append(jobs, j)
		default:
			return jobs
		}
	}
}
