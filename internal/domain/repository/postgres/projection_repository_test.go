package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository/postgres"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/service"
)

const (
	testPostgresDSNEnv    = "TEST_AUDIT_POSTGRES_DSN"
	defaultMigrationsPath = "file://../../../../migrations"
)

type ProjectionRepositoryTestSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	users *postgres.ProjectionUserRepositoryPostgres
	logs  *postgres.LogEntryRepositoryPostgres
	tx    *postgres.TransactionManager
}

func TestProjectionRepositoryTestSuite(t *testing.T) {
	dsn := os.Getenv(testPostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping postgres repository tests", testPostgresDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = defaultMigrationsPath
	}
	if !strings.HasPrefix(migrationsPath, "file://") {
		migrationsPath = "file://" + migrationsPath
	}
	m, err := migrate.New(migrationsPath, dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	suite.Run(t, &ProjectionRepositoryTestSuite{
		pool:  pool,
		users: postgres.NewProjectionUserRepositoryPostgres(pool),
		logs:  postgres.NewLogEntryRepositoryPostgres(pool),
		tx:    postgres.NewTransactionManager(pool),
	})
}

func (s *ProjectionRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE log_entries, projection_users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *ProjectionRepositoryTestSuite) newUser(externalID, name string, createdAt time.Time) *models.ProjectionUser {
	user := &models.ProjectionUser{ExternalID: externalID, DisplayName: name, CreatedAt: createdAt}
	s.Require().NoError(s.users.Create(context.Background(), user))
	s.Require().NotEqual(uuid.Nil, user.ID)
	return user
}

func (s *ProjectionRepositoryTestSuite) TestCreateAndFind() {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := s.newUser("u1", "John Doe", created)

	byID, err := s.users.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("u1", byID.ExternalID)
	s.Equal("John Doe", byID.DisplayName)
	s.True(byID.CreatedAt.Equal(created))
	s.Equal(time.UTC, byID.CreatedAt.Location())
	s.Nil(byID.UpdatedAt)

	byExternal, err := s.users.FindByExternalID(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(user.ID, byExternal.ID)

	_, err = s.users.FindByExternalID(ctx, "missing")
	s.ErrorIs(err, domainErrors.ErrUserNotFound)
}

func (s *ProjectionRepositoryTestSuite) TestDuplicateExternalIDKeepsTransactionUsable() {
	ctx := context.Background()
	existing := s.newUser("u1", "John Doe", time.Now().UTC())

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		dup := &models.ProjectionUser{ExternalID: "u1", DisplayName: "Other", CreatedAt: time.Now().UTC()}
		if err := s.users.Create(ctx, dup); !errors.Is(err, domainErrors.ErrDuplicateIdentity) {
			return err
		}
		found, err := s.users.FindByExternalID(ctx, "u1")
		if err != nil {
			return err
		}
		s.Equal(existing.ID, found.ID)
		return s.logs.Append(ctx, &models.LogEntry{Action: "Login", UserID: found.ID, Message: "m", CreatedAt: time.Now().UTC()})
	})
	s.Require().NoError(err)

	views, err := s.logs.List(ctx, models.ListLogEntriesParams{})
	s.Require().NoError(err)
	s.Len(views, 1)
}

func (s *ProjectionRepositoryTestSuite) TestConcurrentFirstSightCreatesOneRow() {
	ctx := context.Background()
	resolver := service.NewIdentityResolver(s.users, zap.NewNop())
	observed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	const writers = 2
	var (
		started sync.WaitGroup
		done    sync.WaitGroup
		mu      sync.Mutex
		ids     []uuid.UUID
		created int
		errs    []error
	)
	started.Add(writers)
	done.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer done.Done()
			err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				// both transactions are open before either inserts
				started.Done()
				started.Wait()

				user, isNew, err := resolver.ResolveOrCreate(ctx, "race-1", "Unknown User", observed)
				if err != nil {
					return err
				}
				mu.Lock()
				ids = append(ids, user.ID)
				if isNew {
					created++
				}
				mu.Unlock()

				// hold the row lock so the other insert has to wait for the commit
				time.Sleep(50 * time.Millisecond)
				return s.logs.Append(ctx, &models.LogEntry{Action: "Login", UserID: user.ID, Message: "m", CreatedAt: observed})
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	done.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(1, created)
	s.Require().Len(ids, writers)
	s.Equal(ids[0], ids[1])

	var rows int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM projection_users WHERE external_id = $1`, "race-1").Scan(&rows))
	s.Equal(1, rows)

	views, err := s.logs.List(ctx, models.ListLogEntriesParams{UserID: &ids[0]})
	s.Require().NoError(err)
	s.Len(views, writers)
}

func (s *ProjectionRepositoryTestSuite) TestAppendClipsMessageOnEntry() {
	ctx := context.Background()
	user := s.newUser("u1", "John Doe", time.Now().UTC())

	entry := &models.LogEntry{
		Action:    "Login",
		UserID:    user.ID,
		Message:   strings.Repeat("x", models.MaxMessageLength+25),
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.logs.Append(ctx, entry))
	s.Len([]rune(entry.Message), models.MaxMessageLength)

	view, err := s.logs.FindByID(ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(entry.Message, view.Message)
}

func (s *ProjectionRepositoryTestSuite) TestRollbackUndoesEveryWrite() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user := &models.ProjectionUser{ExternalID: "u9", DisplayName: "Ann", CreatedAt: time.Now().UTC()}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.logs.Append(ctx, &models.LogEntry{Action: "Created", UserID: user.ID, Message: "m", CreatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.users.FindByExternalID(ctx, "u9")
	s.ErrorIs(err, domainErrors.ErrUserNotFound)
	views, err := s.logs.List(ctx, models.ListLogEntriesParams{})
	s.Require().NoError(err)
	s.Empty(views)
}

func (s *ProjectionRepositoryTestSuite) TestListOrderAndRename() {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.newUser("u2", "Bob", base)
	older := s.newUser("u1", "Alice", base)
	s.newUser("u3", "Alice", base.Add(time.Hour))

	users, err := s.users.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("u3", users[0].ExternalID)
	s.Equal("u1", users[1].ExternalID)
	s.Equal("u2", users[2].ExternalID)

	renamedAt := base.Add(2 * time.Hour)
	s.Require().NoError(s.users.UpdateDisplayName(ctx, older.ID, "Alicia", renamedAt))
	found, err := s.users.FindByID(ctx, older.ID)
	s.Require().NoError(err)
	s.Equal("Alicia", found.DisplayName)
	s.Require().NotNil(found.UpdatedAt)
	s.True(found.UpdatedAt.Equal(renamedAt))

	s.ErrorIs(s.users.UpdateDisplayName(ctx, uuid.New(), "x", renamedAt), domainErrors.ErrUserNotFound)
}

func (s *ProjectionRepositoryTestSuite) TestLogEntriesFiltersAndCascade() {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	john := s.newUser("u1", "John Doe", base)
	ann := s.newUser("u2", "Ann", base)

	appendLog := func(user *models.ProjectionUser, action string, at time.Time) *models.LogEntry {
		entry := &models.LogEntry{Action: action, UserID: user.ID, Message: action + " message", CreatedAt: at}
		s.Require().NoError(s.logs.Append(ctx, entry))
		return entry
	}
	first := appendLog(john, "Login", base)
	appendLog(john, "Logout", base.Add(time.Minute))
	appendLog(ann, "Login", base.Add(2*time.Minute))

	all, err := s.logs.List(ctx, models.ListLogEntriesParams{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("u2", all[0].UserExternalID)
	s.Equal(first.ID, all[2].ID)

	action := "Login"
	logins, err := s.logs.List(ctx, models.ListLogEntriesParams{Action: &action})
	s.Require().NoError(err)
	s.Len(logins, 2)

	from, to := base.Add(30*time.Second), base.Add(90*time.Second)
	ranged, err := s.logs.List(ctx, models.ListLogEntriesParams{UserID: &john.ID, DateFrom: &from, DateTo: &to})
	s.Require().NoError(err)
	s.Require().Len(ranged, 1)
	s.Equal("Logout", ranged[0].Action)
	s.Equal("John Doe", ranged[0].UserDisplayName)

	paged, err := s.logs.List(ctx, models.ListLogEntriesParams{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(paged, 1)
	s.Equal("Logout", paged[0].Action)

	view, err := s.logs.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("Login message", view.Message)

	s.Require().NoError(s.users.Delete(ctx, john.ID))
	_, err = s.logs.FindByID(ctx, first.ID)
	s.ErrorIs(err, domainErrors.ErrLogEntryNotFound)
	s.ErrorIs(s.users.Delete(ctx, john.ID), domainErrors.ErrUserNotFound)
}
