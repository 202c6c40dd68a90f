package gamification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/qa-forum/internal/common"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/features/streak"
	"serotonyl.ru/qa-forum/internal/features/votes"
	"serotonyl.ru/qa-forum/internal/jobs"
)

var errStore = common.Persistence("сбой хранилища", errors.New("connection reset by peer"))

func testConfig() *config.Config {
	return &config.Config{
		InstanceID:               "test",
		PointsQuestion:           2,
		PointsAnswer:             3,
		PointsUpvote:             1,
		PointsDailyLogin:         1,
		StreakMinOffsetMinutes:   -720,
		StreakMaxOffsetMinutes:   840,
		StreakMaxRetries:         3,
		OutboxBatchSize:          10,
		OutboxMaxAttempts:        3,
		OutboxRetryDelay:         30 * time.Second,
		OutboxPollInterval:       10 * time.Millisecond,
		OutboxLease:              time.Minute,
		LeaderboardSize:          100,
		LeaderboardNotifyTopSize: 3,
	}
}

// recordingNotifier запоминает отправленные уведомления.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// flakyLedger отклоняет первые failures записей.
type flakyLedger struct {
	PointLedger
	mu       sync.Mutex
	failures int
	err      error
}

func (f *flakyLedger) fail(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures, f.err = n, err
}

func (f *flakyLedger) Append(ctx context.Context, req economy.AppendRequest) (*economy.AppendResult, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		err := f.err
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()
	return f.PointLedger.Append(ctx, req)
}

// brokenTracker всегда падает на записи стрика.
type brokenTracker struct {
	StreakTracker
}

func (brokenTracker) RecordActivity(context.Context, int64, int, time.Time) (*streak.Result, error) {
	return nil, errStore
}

// stickyContent не может удалить контент (компенсация падает).
type stickyContent struct {
	ContentService
}

func (stickyContent) DeleteQuestion(context.Context, string) error { return errStore }
func (stickyContent) DeleteAnswer(context.Context, string) error   { return errStore }

// unwritableContent не может сохранить новый контент.
type unwritableContent struct {
	ContentService
}

func (unwritableContent) CreateQuestion(context.Context, content.NewQuestion) (*content.Question, error) {
	return nil, errStore
}

func (unwritableContent) CreateAnswer(context.Context, content.NewAnswer) (*content.Answer, error) {
	return nil, errStore
}

// racedVotes проигрывает гонку первого голоса.
type racedVotes struct {
	VoteToggler
}

func (racedVotes) Toggle(_ context.Context, contentID string, userID int64) (*votes.Result, error) {
	return nil, fmt.Errorf("голос user_id=%d за %s: %w", userID, contentID, common.ErrConflict)
}

// brokenOutbox не принимает новые элементы.
type brokenOutbox struct {
	OutboxStore
}

func (brokenOutbox) Enqueue(context.Context, *OutboxItem) error { return errStore }

type fixture struct {
	cfg        *config.Config
	coord      *Coordinator
	worker     *OutboxWorker
	reconciler *Reconciler
	content    *content.Service
	ledger     *flakyLedger
	balances   *economy.BalanceStore
	history    *economy.Ledger
	tracker    *streak.Tracker
	votes      *votes.Service
	outbox     *MemoryOutbox
	snapshots  *leaderboard.Service
	runs       *jobs.MemoryRunStore
	notifier   *recordingNotifier
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()

	economyStore := economy.NewMemoryRepository()
	f := &fixture{
		cfg:       cfg,
		content:   content.NewService(content.NewMemoryRepository()),
		history:   economy.NewLedger(economyStore),
		balances:  economy.NewBalanceStore(economyStore),
		tracker:   streak.NewTracker(streak.NewMemoryRepository(), cfg),
		votes:     votes.NewService(votes.NewMemoryRepository()),
		outbox:    NewMemoryOutbox(),
		snapshots: leaderboard.NewService(leaderboard.NewMemoryRepository()),
		runs:      jobs.NewMemoryRunStore(),
		notifier:  &recordingNotifier{},
		now:       time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	f.ledger = &flakyLedger{PointLedger: f.history}
	f.worker = NewOutboxWorker(f.outbox, f.ledger, f.notifier, cfg)
	f.worker.now = f.clock
	f.coord = NewCoordinator(f.deps(), cfg)
	f.coord.now = f.clock
	f.reconciler = NewReconciler(f.tracker, f.balances, f.snapshots, f.runs, f.notifier, cfg)
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) deps() Dependencies {
	return Dependencies{
		Content:  f.content,
		Streaks:  f.tracker,
		Ledger:   f.ledger,
		Balances: f.balances,
		Votes:    f.votes,
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Wake:     f.worker.Kick,
	}
}

// rewire пересобирает координатор с подменёнными зависимостями.
func (f *fixture) rewire(mutate func(d *Dependencies)) {
	d := f.deps()
	mutate(&d)
	f.coord = NewCoordinator(d, f.cfg)
	f.coord.now = f.clock
}

func (f *fixture) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	b, err := f.balances.Read(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) drain(t *testing.T) int {
	t.Helper()
	n, err := f.worker.Drain(context.Background())
	require.NoError(t, err)
	return n
}

func (f *fixture) question(t *testing.T, authorID int64) *content.Question {
	t.Helper()
	q, err := f.coord.CreateQuestion(context.Background(), content.NewQuestion{
		AuthorID: authorID, Title: "Почему горутины дешёвые?", Body: "...",
	}, 0)
	require.NoError(t, err)
	return q
}
