package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type completionKey struct {
	userId    int64
	missionId int64
}

// fakeStore is an in-memory MissionStore enforcing the same uniqueness
// constraint as the completions table primary key.
type fakeStore struct {
	mu          sync.Mutex
	users       map[int64]*entity.User
	missions    map[int64]*entity.Mission
	completions map[completionKey]*entity.Completion
	nextId      int64
	failWrites  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*entity.User),
		missions:    make(map[int64]*entity.Mission),
		completions: make(map[completionKey]*entity.Completion),
	}
}

func (s *fakeStore) RegisterUser(telegramId int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[telegramId]; ok {
		u.TelegramUsername = username
		return nil
	}
	s.users[telegramId] = &entity.User{TelegramId: telegramId, TelegramUsername: username}
	return nil
}

func (s *fakeStore) GetUser(telegramId int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) SetInstagramHandle(telegramId int64, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramId]
	if !ok {
		u = &entity.User{TelegramId: telegramId}
		s.users[telegramId] = u
	}
	u.InstagramHandle = handle
	return nil
}

func (s *fakeStore) GetPoints(telegramId int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[telegramId]; ok {
		return u.Points, nil
	}
	return 0, nil
}

func (s *fakeStore) EnsureReferralToken(telegramId int64, candidate string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramId]
	if !ok {
		return "", entity.ErrNotFound
	}
	if u.ReferralToken == "" {
		u.ReferralToken = candidate
	}
	return u.ReferralToken, nil
}

func (s *fakeStore) CreateMission(m *entity.Mission) (*entity.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	created := *m
	created.Id = s.nextId
	created.Active = true
	created.CreatedAt = time.Now()
	s.missions[created.Id] = &created
	return &created, nil
}

func (s *fakeStore) GetMission(id int64) (*entity.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *fakeStore) SetMissionActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return entity.ErrNotFound
	}
	m.Active = active
	return nil
}

func (s *fakeStore) ListMissions() ([]*entity.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*entity.Mission
	for i := int64(1); i <= s.nextId; i++ {
		if m, ok := s.missions[i]; ok {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeStore) ListEligibleMissions(userId int64, filter entity.ActionType) ([]*entity.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*entity.Mission
	for i := int64(1); i <= s.nextId; i++ {
		m, ok := s.missions[i]
		if !ok || !m.Active {
			continue
		}
		if filter != "" && m.Type != filter {
			continue
		}
		if _, done := s.completions[completionKey{userId, m.Id}]; done {
			continue
		}
		copied := *m
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeStore) RecordCompletion(userId, missionId int64, description string, points int64) (*entity.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return nil, fmt.Errorf("storage offline")
	}
	key := completionKey{userId, missionId}
	if _, exists := s.completions[key]; exists {
		return nil, entity.ErrAlreadyCompleted
	}
	completion := &entity.Completion{
		UserId:      userId,
		MissionId:   missionId,
		CompletedAt: time.Now(),
		Description: description,
	}
	s.completions[key] = completion
	if u, ok := s.users[userId]; ok {
		u.Points += points
	}
	copied := *completion
	return &copied, nil
}

func (s *fakeStore) SetRewardCode(userId, missionId int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[completionKey{userId, missionId}]
	if !ok {
		return entity.ErrNotFound
	}
	c.RewardCode = code
	return nil
}

func (s *fakeStore) CompletionCount(missionId int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for key := range s.completions {
		if key.missionId == missionId {
			count++
		}
	}
	return count, nil
}

// fakeVerifier confirms every action unless told otherwise.
type fakeVerifier struct {
	deny bool
	err  error
}

func (v *fakeVerifier) HasPerformedAction(_ context.Context, _ entity.ActionType, _, _ string) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return !v.deny, nil
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued int
	err    error
}

func (i *fakeIssuer) IssueDiscountCode(_ context.Context, _ int64, _ int64, _ time.Time) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return "", i.err
	}
	i.issued++
	return fmt.Sprintf("ENGAGE%06d", i.issued), nil
}

func setupCore(t *testing.T, verifier SocialVerifier, issuer RewardIssuer) (*Core, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	c := New(store, verifier, issuer, Config{RewardPoints: 10, DiscountPercent: 10}, testLogger())
	return c, store
}

func linkUser(t *testing.T, c *Core, telegramId int64, handle string) {
	t.Helper()
	if err := c.RegisterUser(telegramId, "tester"); err != nil {
		t.Fatalf("register user: %v", err)
	}
	if _, err := c.LinkProfile(telegramId, handle); err != nil {
		t.Fatalf("link profile: %v", err)
	}
}

func addMission(t *testing.T, c *Core, actionType entity.ActionType, target string) *entity.Mission {
	t.Helper()
	m, err := c.CreateMission(&entity.Mission{Type: actionType, TargetRef: target})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func TestVerifyMissionsCompletesAndIssuesCode(t *testing.T) {
	issuer := &fakeIssuer{}
	c, _ := setupCore(t, &fakeVerifier{}, issuer)
	linkUser(t, c, 100, "alice")
	addMission(t, c, entity.ActionLike, "https://www.instagram.com/p/Cxyz/")

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != entity.VerifyCompleted {
		t.Errorf("expected completed, got %v", outcomes[0].Status)
	}
	if outcomes[0].Code == "" {
		t.Errorf("expected a reward code")
	}

	points, err := c.Points(100)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if points != 10 {
		t.Errorf("expected 10 points, got %d", points)
	}
}

func TestVerifyMissionsRequiresLinkedProfile(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})

	_, err := c.VerifyMissions(context.Background(), 100)
	if !errors.Is(err, entity.ErrProfileNotLinked) {
		t.Fatalf("expected ErrProfileNotLinked for unknown user, got %v", err)
	}

	if err = c.RegisterUser(100, "tester"); err != nil {
		t.Fatalf("register user: %v", err)
	}
	_, err = c.VerifyMissions(context.Background(), 100)
	if !errors.Is(err, entity.ErrProfileNotLinked) {
		t.Fatalf("expected ErrProfileNotLinked without handle, got %v", err)
	}
}

func TestVerifyMissionsProviderOutage(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("%w: rate limited", entity.ErrVerificationUnavailable)}
	issuer := &fakeIssuer{}
	c, store := setupCore(t, verifier, issuer)
	linkUser(t, c, 100, "alice")
	mission := addMission(t, c, entity.ActionLike, "ref")

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcomes[0].Status != entity.VerifyUnavailable {
		t.Errorf("expected unavailable, got %v", outcomes[0].Status)
	}

	// outage must leave no trace: no completion, no points, no code
	if count, _ := store.CompletionCount(mission.Id); count != 0 {
		t.Errorf("outage recorded a completion")
	}
	if points, _ := c.Points(100); points != 0 {
		t.Errorf("outage awarded points: %d", points)
	}
	if issuer.issued != 0 {
		t.Errorf("outage issued a code")
	}

	// mission stays eligible for a later retry
	missions, err := c.RequestMissions(context.Background(), 100, "")
	if err != nil {
		t.Fatalf("request missions: %v", err)
	}
	if len(missions) != 1 {
		t.Errorf("mission no longer offered after outage")
	}
}

func TestVerifyMissionsActionNotPerformed(t *testing.T) {
	issuer := &fakeIssuer{}
	c, store := setupCore(t, &fakeVerifier{deny: true}, issuer)
	linkUser(t, c, 100, "alice")
	mission := addMission(t, c, entity.ActionLike, "ref")

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcomes[0].Status != entity.VerifyNotCompleted {
		t.Errorf("expected not-completed, got %v", outcomes[0].Status)
	}
	if count, _ := store.CompletionCount(mission.Id); count != 0 {
		t.Errorf("negative judgement recorded a completion")
	}
	if issuer.issued != 0 {
		t.Errorf("negative judgement issued a code")
	}

	// the mission stays offered so the user can finish and retry
	missions, _ := c.RequestMissions(context.Background(), 100, "")
	if len(missions) != 1 {
		t.Errorf("mission withdrawn after a definitive false")
	}
}

func TestVerifyMissionsRepeatIsIdempotent(t *testing.T) {
	issuer := &fakeIssuer{}
	c, _ := setupCore(t, &fakeVerifier{}, issuer)
	linkUser(t, c, 100, "alice")
	addMission(t, c, entity.ActionFollow, "brand")

	if _, err := c.VerifyMissions(context.Background(), 100); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("completed mission still offered for verification")
	}

	if points, _ := c.Points(100); points != 10 {
		t.Errorf("points awarded more than once: %d", points)
	}
	if issuer.issued != 1 {
		t.Errorf("expected exactly one issued code, got %d", issuer.issued)
	}
}

func TestVerifyMissionsConcurrentSingleCompletion(t *testing.T) {
	issuer := &fakeIssuer{}
	c, store := setupCore(t, &fakeVerifier{}, issuer)
	linkUser(t, c, 100, "alice")
	mission := addMission(t, c, entity.ActionComment, "ref")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.VerifyMissions(context.Background(), 100)
		}()
	}
	wg.Wait()

	if count, _ := store.CompletionCount(mission.Id); count != 1 {
		t.Errorf("expected 1 completion, got %d", count)
	}
	if points, _ := c.Points(100); points != 10 {
		t.Errorf("expected 10 points, got %d", points)
	}
	if issuer.issued != 1 {
		t.Errorf("expected exactly one issued code, got %d", issuer.issued)
	}
}

func TestVerifyMissionsIssuerFailureKeepsCompletion(t *testing.T) {
	issuer := &fakeIssuer{err: fmt.Errorf("%w: coupon api down", entity.ErrIssuanceFailed)}
	c, store := setupCore(t, &fakeVerifier{}, issuer)
	linkUser(t, c, 100, "alice")
	mission := addMission(t, c, entity.ActionLike, "ref")

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcomes[0].Status != entity.VerifyCodeFailed {
		t.Errorf("expected code-failed outcome, got %v", outcomes[0].Status)
	}

	// completion and points survive the issuance failure
	if count, _ := store.CompletionCount(mission.Id); count != 1 {
		t.Errorf("completion lost after issuance failure")
	}
	if points, _ := c.Points(100); points != 10 {
		t.Errorf("expected 10 points, got %d", points)
	}
}

func TestVerifyMissionsStoreFailure(t *testing.T) {
	c, store := setupCore(t, &fakeVerifier{}, &fakeIssuer{})
	linkUser(t, c, 100, "alice")
	addMission(t, c, entity.ActionLike, "ref")
	store.failWrites = true

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcomes[0].Status != entity.VerifyError {
		t.Errorf("expected error outcome, got %v", outcomes[0].Status)
	}
}

func TestVerifyMissionsSkipsDisabled(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})
	linkUser(t, c, 100, "alice")
	mission := addMission(t, c, entity.ActionLike, "ref")

	if err := c.SetMissionActive(mission.Id, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	outcomes, err := c.VerifyMissions(context.Background(), 100)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("disabled mission was verified")
	}
}

func TestLinkProfileNormalizesHandle(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})
	if err := c.RegisterUser(100, "tester"); err != nil {
		t.Fatalf("register user: %v", err)
	}

	handle, err := c.LinkProfile(100, "  @Alice_Wonder ")
	if err != nil {
		t.Fatalf("link profile: %v", err)
	}
	if handle != "alice_wonder" {
		t.Errorf("expected normalized handle, got %q", handle)
	}

	_, err = c.LinkProfile(100, "  @ ")
	if !errors.Is(err, entity.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty handle, got %v", err)
	}
}

func TestCreateMissionValidation(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})

	_, err := c.CreateMission(&entity.Mission{Type: "subscribe", TargetRef: "ref"})
	if !errors.Is(err, entity.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown type, got %v", err)
	}
	_, err = c.CreateMission(&entity.Mission{Type: entity.ActionLike})
	if !errors.Is(err, entity.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty target, got %v", err)
	}
}

func TestRequestMissionsFilter(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})
	linkUser(t, c, 100, "alice")
	addMission(t, c, entity.ActionLike, "post1")
	addMission(t, c, entity.ActionFollow, "brand")

	missions, err := c.RequestMissions(context.Background(), 100, entity.ActionFollow)
	if err != nil {
		t.Fatalf("request missions: %v", err)
	}
	if len(missions) != 1 || missions[0].Type != entity.ActionFollow {
		t.Errorf("filter not applied: %+v", missions)
	}

	_, err = c.RequestMissions(context.Background(), 100, "share")
	if !errors.Is(err, entity.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown filter, got %v", err)
	}
}

func TestReferralTokenIsStable(t *testing.T) {
	c, _ := setupCore(t, &fakeVerifier{}, &fakeIssuer{})
	if err := c.RegisterUser(100, "tester"); err != nil {
		t.Fatalf("register user: %v", err)
	}

	first, err := c.ReferralToken(100)
	if err != nil {
		t.Fatalf("referral token: %v", err)
	}
	if first == "" {
		t.Fatal("empty referral token")
	}
	second, err := c.ReferralToken(100)
	if err != nil {
		t.Fatalf("referral token: %v", err)
	}
	if first != second {
		t.Errorf("token changed between calls: %q vs %q", first, second)
	}
}
