package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/engine"
	"github.com/concordhq/concord/internal/alignment/integrity"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// fakeClock is a mutable clock shared by the service and the grant
// signer so TTL behavior is testable without sleeping.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: fixedNow}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// sequentialIDs returns a deterministic id generator.
func sequentialIDs(prefix string) func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}

type userRoundKey struct {
	alignmentID string
	userID      string
	round       int
}

type roundKey struct {
	alignmentID string
	round       int
}

// fakeStore is an in-memory storage.Store that mirrors the sqlite
// store's write-boundary behaviors: the participant cap, the
// submitted-response write rejection, unique analysis and signature
// rows, and guarded invite redemption.
type fakeStore struct {
	alignments   map[string]storage.AlignmentRecord
	participants map[string]map[string]storage.ParticipantRecord
	responses    map[userRoundKey]storage.ResponseRecord
	analyses     map[roundKey]storage.AnalysisRecord
	resolutions  map[userRoundKey]storage.ResolutionRecord
	signatures   map[userRoundKey]storage.SignatureRecord
	invites      map[string]storage.InviteRecord
	templates    map[string]storage.TemplateRecord
	events       []storage.EventRecord
	nextSeq      int64

	getTemplateCalls int
	lastListRequest  storage.ListAlignmentsRequest

	// putAnalysisHook and putSignatureHook run just before the
	// uniqueness check, standing in for a concurrent writer.
	putAnalysisHook  func()
	putSignatureHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alignments:   make(map[string]storage.AlignmentRecord),
		participants: make(map[string]map[string]storage.ParticipantRecord),
		responses:    make(map[userRoundKey]storage.ResponseRecord),
		analyses:     make(map[roundKey]storage.AnalysisRecord),
		resolutions:  make(map[userRoundKey]storage.ResolutionRecord),
		signatures:   make(map[userRoundKey]storage.SignatureRecord),
		invites:      make(map[string]storage.InviteRecord),
		templates:    make(map[string]storage.TemplateRecord),
	}
}

func (s *fakeStore) PutAlignment(_ context.Context, record storage.AlignmentRecord) error {
	s.alignments[record.ID] = record
	return nil
}

func (s *fakeStore) GetAlignment(_ context.Context, id string) (storage.AlignmentRecord, error) {
	record, ok := s.alignments[id]
	if !ok {
		return storage.AlignmentRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListAlignmentsByUser(_ context.Context, req storage.ListAlignmentsRequest) (storage.AlignmentPage, error) {
	s.lastListRequest = req
	var matches []storage.AlignmentRecord
	for alignmentID, seats := range s.participants {
		if _, ok := seats[req.UserID]; !ok {
			continue
		}
		if record, ok := s.alignments[alignmentID]; ok {
			matches = append(matches, record)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	if req.PageSize > 0 && len(matches) > req.PageSize {
		matches = matches[:req.PageSize]
	}
	return storage.AlignmentPage{Alignments: matches}, nil
}

func (s *fakeStore) AddParticipant(_ context.Context, record storage.ParticipantRecord) error {
	seats := s.participants[record.AlignmentID]
	if seats == nil {
		seats = make(map[string]storage.ParticipantRecord)
		s.participants[record.AlignmentID] = seats
	}
	if _, ok := seats[record.UserID]; ok {
		return nil
	}
	if len(seats) >= domain.MaxParticipants {
		return apperrors.WithMetadata(apperrors.CodeAlignmentTooManyParticipants,
			"alignment already has two participants", map[string]string{
				"AlignmentID": record.AlignmentID,
			})
	}
	seats[record.UserID] = record
	return nil
}

func (s *fakeStore) GetParticipant(_ context.Context, alignmentID, userID string) (storage.ParticipantRecord, error) {
	record, ok := s.participants[alignmentID][userID]
	if !ok {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListParticipants(_ context.Context, alignmentID string) ([]storage.ParticipantRecord, error) {
	seats := s.participants[alignmentID]
	records := make([]storage.ParticipantRecord, 0, len(seats))
	for _, record := range seats {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (s *fakeStore) PutResponse(_ context.Context, record storage.ResponseRecord) error {
	key := userRoundKey{record.AlignmentID, record.UserID, record.Round}
	if existing, ok := s.responses[key]; ok {
		if existing.SubmittedAt != nil {
			return apperrors.WithMetadata(apperrors.CodeResponseAlreadySubmitted,
				"submitted responses cannot be modified", map[string]string{
					"AlignmentID": record.AlignmentID,
					"UserID":      record.UserID,
				})
		}
		existing.AnswersJSON = record.AnswersJSON
		existing.UpdatedAt = record.UpdatedAt
		s.responses[key] = existing
		return nil
	}
	s.responses[key] = record
	return nil
}

func (s *fakeStore) GetResponse(_ context.Context, alignmentID, userID string, round int) (storage.ResponseRecord, error) {
	record, ok := s.responses[userRoundKey{alignmentID, userID, round}]
	if !ok {
		return storage.ResponseRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListResponsesByRound(_ context.Context, alignmentID string, round int) ([]storage.ResponseRecord, error) {
	var records []storage.ResponseRecord
	for key, record := range s.responses {
		if key.alignmentID == alignmentID && key.round == round {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (s *fakeStore) MarkResponseSubmitted(_ context.Context, alignmentID, userID string, round int, submittedAt time.Time) (storage.ResponseRecord, error) {
	key := userRoundKey{alignmentID, userID, round}
	record, ok := s.responses[key]
	if !ok {
		return storage.ResponseRecord{}, storage.ErrNotFound
	}
	if record.SubmittedAt == nil {
		stamp := submittedAt.UTC()
		record.SubmittedAt = &stamp
		record.UpdatedAt = stamp
		s.responses[key] = record
	}
	return record, nil
}

func (s *fakeStore) PutAnalysis(_ context.Context, record storage.AnalysisRecord) error {
	if s.putAnalysisHook != nil {
		hook := s.putAnalysisHook
		s.putAnalysisHook = nil
		hook()
	}
	key := roundKey{record.AlignmentID, record.Round}
	if _, ok := s.analyses[key]; ok {
		return storage.ErrConflict
	}
	s.analyses[key] = record
	return nil
}

func (s *fakeStore) GetAnalysisByRound(_ context.Context, alignmentID string, round int) (storage.AnalysisRecord, error) {
	record, ok := s.analyses[roundKey{alignmentID, round}]
	if !ok {
		return storage.AnalysisRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) GetLatestAnalysis(_ context.Context, alignmentID string) (storage.AnalysisRecord, error) {
	var latest storage.AnalysisRecord
	found := false
	for key, record := range s.analyses {
		if key.alignmentID != alignmentID {
			continue
		}
		if !found || record.Round > latest.Round {
			latest = record
			found = true
		}
	}
	if !found {
		return storage.AnalysisRecord{}, storage.ErrNotFound
	}
	return latest, nil
}

func (s *fakeStore) PutResolutionSet(_ context.Context, record storage.ResolutionRecord) error {
	key := userRoundKey{record.AlignmentID, record.UserID, record.Round}
	if existing, ok := s.resolutions[key]; ok {
		existing.ItemsJSON = record.ItemsJSON
		existing.UpdatedAt = record.UpdatedAt
		s.resolutions[key] = existing
		return nil
	}
	s.resolutions[key] = record
	return nil
}

func (s *fakeStore) GetResolutionSet(_ context.Context, alignmentID, userID string, round int) (storage.ResolutionRecord, error) {
	record, ok := s.resolutions[userRoundKey{alignmentID, userID, round}]
	if !ok {
		return storage.ResolutionRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListResolutionSetsByRound(_ context.Context, alignmentID string, round int) ([]storage.ResolutionRecord, error) {
	var records []storage.ResolutionRecord
	for key, record := range s.resolutions {
		if key.alignmentID == alignmentID && key.round == round {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (s *fakeStore) PutSignature(_ context.Context, record storage.SignatureRecord) error {
	if s.putSignatureHook != nil {
		hook := s.putSignatureHook
		s.putSignatureHook = nil
		hook()
	}
	key := userRoundKey{record.AlignmentID, record.UserID, record.Round}
	if _, ok := s.signatures[key]; ok {
		return storage.ErrConflict
	}
	s.signatures[key] = record
	return nil
}

func (s *fakeStore) GetSignature(_ context.Context, alignmentID, userID string, round int) (storage.SignatureRecord, error) {
	record, ok := s.signatures[userRoundKey{alignmentID, userID, round}]
	if !ok {
		return storage.SignatureRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListSignaturesByRound(_ context.Context, alignmentID string, round int) ([]storage.SignatureRecord, error) {
	var records []storage.SignatureRecord
	for key, record := range s.signatures {
		if key.alignmentID == alignmentID && key.round == round {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (s *fakeStore) PutInvite(_ context.Context, record storage.InviteRecord) error {
	s.invites[record.ID] = record
	return nil
}

func (s *fakeStore) GetInvite(_ context.Context, id string) (storage.InviteRecord, error) {
	record, ok := s.invites[id]
	if !ok {
		return storage.InviteRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) GetInviteByTokenHash(_ context.Context, tokenHash string) (storage.InviteRecord, error) {
	for _, record := range s.invites {
		if record.TokenHash == tokenHash {
			return record, nil
		}
	}
	return storage.InviteRecord{}, storage.ErrNotFound
}

func (s *fakeStore) RedeemInviteByTokenHash(ctx context.Context, tokenHash string, now time.Time) (storage.InviteRecord, error) {
	record, err := s.GetInviteByTokenHash(ctx, tokenHash)
	if err != nil {
		return storage.InviteRecord{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
	}
	switch {
	case record.InvalidatedAt != nil:
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteInvalidated,
			"invite has been invalidated", map[string]string{"InviteID": record.ID})
	case !record.ExpiresAt.After(now.UTC()):
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteExpired,
			"invite has expired", map[string]string{"InviteID": record.ID})
	case record.UseCount >= record.MaxUses:
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteExhausted,
			"invite has no uses left", map[string]string{"InviteID": record.ID})
	}
	record.UseCount++
	record.UpdatedAt = now.UTC()
	s.invites[record.ID] = record
	return record, nil
}

func (s *fakeStore) InvalidateInvite(_ context.Context, id string, at time.Time) error {
	record, ok := s.invites[id]
	if !ok {
		return storage.ErrNotFound
	}
	if record.InvalidatedAt == nil {
		stamp := at.UTC()
		record.InvalidatedAt = &stamp
		record.UpdatedAt = stamp
		s.invites[id] = record
	}
	return nil
}

func (s *fakeStore) ListInvitesByAlignment(_ context.Context, alignmentID string) ([]storage.InviteRecord, error) {
	var records []storage.InviteRecord
	for _, record := range s.invites {
		if record.AlignmentID == alignmentID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *fakeStore) PutTemplate(_ context.Context, record storage.TemplateRecord) error {
	if existing, ok := s.templates[record.ID]; ok {
		existing.Name = record.Name
		existing.QuestionsJSON = record.QuestionsJSON
		existing.UpdatedAt = record.UpdatedAt
		s.templates[record.ID] = existing
		return nil
	}
	s.templates[record.ID] = record
	return nil
}

func (s *fakeStore) GetTemplate(_ context.Context, id string) (storage.TemplateRecord, error) {
	s.getTemplateCalls++
	record, ok := s.templates[id]
	if !ok {
		return storage.TemplateRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) ListTemplates(_ context.Context) ([]storage.TemplateRecord, error) {
	records := make([]storage.TemplateRecord, 0, len(s.templates))
	for _, record := range s.templates {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *fakeStore) AppendEvent(_ context.Context, record storage.EventRecord) (storage.EventRecord, error) {
	s.nextSeq++
	record.Seq = s.nextSeq
	s.events = append(s.events, record)
	return record, nil
}

func (s *fakeStore) ListAlignmentEvents(_ context.Context, alignmentID string, afterSeq int64, limit int) ([]storage.EventRecord, error) {
	var records []storage.EventRecord
	for _, record := range s.events {
		if record.AlignmentID != alignmentID || record.Seq <= afterSeq {
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *fakeStore) ListEventsAfter(_ context.Context, afterSeq int64, limit int) ([]storage.EventRecord, error) {
	var records []storage.EventRecord
	for _, record := range s.events {
		if record.Seq <= afterSeq {
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *fakeStore) LatestEventSeq(_ context.Context) (int64, error) {
	return s.nextSeq, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeNotifier records published events and can append them to the
// store so the event stream reflects what publish produced.
type fakeNotifier struct {
	store   *fakeStore
	records []storage.EventRecord
	err     error
}

func (n *fakeNotifier) Record(ctx context.Context, record storage.EventRecord) (storage.EventRecord, error) {
	if n.err != nil {
		return storage.EventRecord{}, n.err
	}
	if n.store != nil {
		stored, err := n.store.AppendEvent(ctx, record)
		if err != nil {
			return storage.EventRecord{}, err
		}
		record = stored
	}
	n.records = append(n.records, record)
	return record, nil
}

func (n *fakeNotifier) kinds() []domain.EventKind {
	kinds := make([]domain.EventKind, len(n.records))
	for i, record := range n.records {
		kinds[i] = record.Kind
	}
	return kinds
}

func (n *fakeNotifier) count(kind domain.EventKind) int {
	total := 0
	for _, record := range n.records {
		if record.Kind == kind {
			total++
		}
	}
	return total
}

// fakeEngine scripts analysis outcomes per call.
type fakeEngine struct {
	fn    func(ctx context.Context, req engine.Request) (engine.Result, error)
	calls []engine.Request
}

func (e *fakeEngine) Analyze(ctx context.Context, req engine.Request) (engine.Result, error) {
	e.calls = append(e.calls, req)
	if e.fn == nil {
		return engine.Result{
			Report: domain.Report{Conflicts: []domain.Conflict{}, Score: 90},
			Source: domain.EngineSourceOpenAI,
		}, nil
	}
	return e.fn(ctx, req)
}

// harness bundles a service wired to fakes.
type harness struct {
	service  *Service
	store    *fakeStore
	engine   *fakeEngine
	notifier *fakeNotifier
	clock    *fakeClock
	keyring  *integrity.Keyring
	verifier access.VerifierConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLimits(t, Limits{})
}

func newHarnessWithLimits(t *testing.T, limits Limits) *harness {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate grant key: %v", err)
	}
	keyring, err := integrity.NewKeyring(map[string][]byte{
		"k1": []byte("0123456789abcdef0123456789abcdef"),
	}, "k1")
	if err != nil {
		t.Fatalf("build keyring: %v", err)
	}

	store := newFakeStore()
	notifier := &fakeNotifier{store: store}
	eng := &fakeEngine{}
	clock := newFakeClock()
	svc := New(Config{
		Store:       store,
		Engine:      eng,
		Notifier:    notifier,
		GrantSigner: access.SignerConfig{Key: privateKey, TTL: time.Hour, Now: clock.Now},
		Keyring:     keyring,
		Limits:      limits,
		Clock:       clock.Now,
		NewID:       sequentialIDs("id"),
	})
	if err := svc.SeedBuiltinTemplates(context.Background()); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	return &harness{
		service:  svc,
		store:    store,
		engine:   eng,
		notifier: notifier,
		clock:    clock,
		keyring:  keyring,
		verifier: access.VerifierConfig{Key: publicKey, Now: clock.Now},
	}
}

// openAlignment creates an alignment and admits a partner through a
// real invite, returning the active alignment record.
func openAlignment(t *testing.T, h *harness) storage.AlignmentRecord {
	t.Helper()
	ctx := context.Background()
	created, err := h.service.CreateAlignment(ctx, CreateAlignmentInput{
		TemplateID:  "partnership-foundations",
		DisplayName: "Ana",
		UserID:      "user-a",
	})
	if err != nil {
		t.Fatalf("create alignment: %v", err)
	}
	minted, err := h.service.CreateInvite(ctx, created.Alignment.ID, "user-a")
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	redeemed, err := h.service.RedeemInvite(ctx, RedeemInviteInput{
		Token:       minted.Token,
		DisplayName: "Bruno",
		UserID:      "user-b",
	})
	if err != nil {
		t.Fatalf("redeem invite: %v", err)
	}
	return redeemed.Alignment
}

// completeAnswers covers every required partnership-foundations question.
func completeAnswers(dealbreaker string) map[string]domain.Answer {
	hours := 12.0
	comfort := 7
	return map[string]domain.Answer{
		"pf-goals":            {Kind: domain.KindLongText, Text: "Grow the studio without burning out"},
		"pf-values":           {Kind: domain.KindSingleChoice, Option: "transparency"},
		"pf-decision-style":   {Kind: domain.KindMultiChoice, Options: []string{"finances", "housing"}},
		"pf-weekly-hours":     {Kind: domain.KindNumber, Number: &hours},
		"pf-conflict-comfort": {Kind: domain.KindScale, Scale: &comfort},
		"pf-dealbreaker":      {Kind: domain.KindShortText, Text: dealbreaker},
	}
}

// submitBoth drafts and submits complete round-1 answers for both seats.
func submitBoth(t *testing.T, h *harness, alignmentID string) {
	t.Helper()
	ctx := context.Background()
	for userID, dealbreaker := range map[string]string{
		"user-a": "losing creative control",
		"user-b": "unbounded working hours",
	} {
		if _, err := h.service.SaveDraft(ctx, AnswersInput{
			AlignmentID: alignmentID,
			UserID:      userID,
			Round:       1,
			Answers:     completeAnswers(dealbreaker),
		}); err != nil {
			t.Fatalf("save draft for %s: %v", userID, err)
		}
		if _, err := h.service.SubmitResponse(ctx, alignmentID, userID, 1); err != nil {
			t.Fatalf("submit response for %s: %v", userID, err)
		}
	}
}

// conflictReport builds a report flagging the dealbreaker question.
func conflictReport(score int) domain.Report {
	return domain.Report{
		AlignedItems: []domain.AlignedItem{
			{QuestionID: "pf-values", Description: "Both prioritize transparency", SharedValue: "transparency"},
		},
		Conflicts: []domain.Conflict{
			{
				ID:                  "c1",
				QuestionID:          "pf-dealbreaker",
				Severity:            domain.SeverityModerate,
				Description:         "Dealbreakers point in different directions",
				PersonAPosition:     "losing creative control",
				PersonBPosition:     "unbounded working hours",
				SuggestedResolution: "Cap weekly hours and keep creative veto rights",
			},
		},
		Score: 45,
	}
}

// codeOf extracts the application error code, or CodeUnknown.
func codeOf(err error) apperrors.Code {
	return apperrors.GetCode(err)
}
