// Package memory is an in-memory implementation of store.Repository.
// It is safe for concurrent use: units of work are serialized behind one
// mutex and a unit's writes become visible only when it returns nil.
// Data is lost on restart - for persistence, use the PostgreSQL store.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

type postingKey struct {
	scheduleID uuid.UUID
	period     domain.Period
}

type state struct {
	accounts      map[uuid.UUID]domain.Account
	transactions  []domain.Transaction
	txIndex       map[uuid.UUID]int
	schedules     map[uuid.UUID]domain.AmortizationSchedule
	scheduleOrder []uuid.UUID
	postings      map[postingKey]domain.AmortizationPosting
	snapshots     []domain.BalanceSnapshot
	categories    map[uuid.UUID]domain.Category
	tags          map[uuid.UUID]domain.Tag
	payees        map[uuid.UUID]domain.Payee
	users         map[uuid.UUID]domain.User
	tokens        map[uuid.UUID]domain.RefreshToken
}

func newState() *state {
	return &state{
		accounts:   make(map[uuid.UUID]domain.Account),
		txIndex:    make(map[uuid.UUID]int),
		schedules:  make(map[uuid.UUID]domain.AmortizationSchedule),
		postings:   make(map[postingKey]domain.AmortizationPosting),
		categories: make(map[uuid.UUID]domain.Category),
		tags:       make(map[uuid.UUID]domain.Tag),
		payees:     make(map[uuid.UUID]domain.Payee),
		users:      make(map[uuid.UUID]domain.User),
		tokens:     make(map[uuid.UUID]domain.RefreshToken),
	}
}

// clone copies everything a unit of work may mutate. Stored structs are
// values, and slices inside them are copied on the way in and out.
func (s *state) clone() *state {
	c := &state{
		accounts:      cloneMap(s.accounts),
		transactions:  slices.Clone(s.transactions),
		txIndex:       cloneMap(s.txIndex),
		schedules:     cloneMap(s.schedules),
		scheduleOrder: slices.Clone(s.scheduleOrder),
		postings:      cloneMap(s.postings),
		snapshots:     slices.Clone(s.snapshots),
		categories:    cloneMap(s.categories),
		tags:          cloneMap(s.tags),
		payees:        cloneMap(s.payees),
		users:         cloneMap(s.users),
		tokens:        cloneMap(s.tokens),
	}
	return c
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Store is an in-memory ledger store.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ store.Repository = (*Store)(nil)

func (s *Store) Driver() string {
	return "memory"
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// InTx runs fn against a private copy of the state and swaps it in on success.
func (s *Store) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&queries{st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type queries struct {
	st *state
}

func integrity(constraint, reason string) error {
	return &store.IntegrityError{Constraint: constraint, Reason: reason}
}

func (q *queries) CreateAccount(ctx context.Context, account *domain.Account) error {
	if _, exists := q.st.accounts[account.ID]; exists {
		return integrity("accounts_pkey", "duplicate value")
	}
	if !account.Type.Valid() {
		return integrity("accounts_type_check", "check constraint failed")
	}
	if !account.Purpose.Valid() {
		return integrity("accounts_purpose_check", "check constraint failed")
	}
	q.st.accounts[account.ID] = *account
	return nil
}

func (q *queries) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, ok := q.st.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return &account, nil
}

// LockAccount is FindAccountByID; the store mutex already serializes units.
func (q *queries) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return q.FindAccountByID(ctx, accountID)
}

func (q *queries) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(q.st.accounts))
	for _, account := range q.st.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (q *queries) AddAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, at time.Time) (*domain.Account, error) {
	account, ok := q.st.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	account.BalanceCents += delta
	account.UpdatedAt = at
	q.st.accounts[accountID] = account
	return &account, nil
}

func (q *queries) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if _, exists := q.st.txIndex[tx.ID]; exists {
		return integrity("transactions_pkey", "duplicate value")
	}
	if tx.AmountCents <= 0 {
		return integrity("transactions_amount_check", "check constraint failed")
	}
	if !tx.AccrualType.Valid() {
		return integrity("transactions_accrual_check", "check constraint failed")
	}
	if tx.FromAccountID != nil {
		if _, ok := q.st.accounts[*tx.FromAccountID]; !ok {
			return integrity("transactions_from_account_id_fkey", "referenced row does not exist")
		}
	}
	if tx.ToAccountID != nil {
		if _, ok := q.st.accounts[*tx.ToAccountID]; !ok {
			return integrity("transactions_to_account_id_fkey", "referenced row does not exist")
		}
	}
	if tx.PayeeID != nil {
		if _, ok := q.st.payees[*tx.PayeeID]; !ok {
			return integrity("transactions_payee_id_fkey", "referenced row does not exist")
		}
	}
	if tx.CategoryID != nil {
		if _, ok := q.st.categories[*tx.CategoryID]; !ok {
			return integrity("transactions_category_id_fkey", "referenced row does not exist")
		}
	}
	seen := make(map[uuid.UUID]struct{}, len(tx.TagIDs))
	for _, tagID := range tx.TagIDs {
		if _, ok := q.st.tags[tagID]; !ok {
			return integrity("transaction_tags_tag_id_fkey", "referenced row does not exist")
		}
		if _, dup := seen[tagID]; dup {
			return integrity("transaction_tags_pkey", "duplicate value")
		}
		seen[tagID] = struct{}{}
	}

	stored := *tx
	stored.TagIDs = sortedTags(tx.TagIDs)
	q.st.txIndex[tx.ID] = len(q.st.transactions)
	q.st.transactions = append(q.st.transactions, stored)
	return nil
}

func sortedTags(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	if out == nil {
		out = []uuid.UUID{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (q *queries) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	idx, ok := q.st.txIndex[transactionID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	tx := q.st.transactions[idx]
	tx.TagIDs = slices.Clone(tx.TagIDs)
	return &tx, nil
}

// ListTransactions returns matches ordered by occurred_at DESC, then insertion order DESC.
func (q *queries) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	result := make([]domain.Transaction, 0)
	for i := len(q.st.transactions) - 1; i >= 0; i-- {
		tx := q.st.transactions[i]
		if !filter.Matches(tx) {
			continue
		}
		tx.TagIDs = slices.Clone(tx.TagIDs)
		result = append(result, tx)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.After(result[j].OccurredAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (q *queries) CreateSchedule(ctx context.Context, schedule *domain.AmortizationSchedule) error {
	if _, exists := q.st.schedules[schedule.ID]; exists {
		return integrity("amortization_schedules_pkey", "duplicate value")
	}
	if _, ok := q.st.accounts[schedule.AssetAccountID]; !ok {
		return integrity("amortization_schedules_asset_account_id_fkey", "referenced row does not exist")
	}
	if _, ok := q.st.txIndex[schedule.SourceTransactionID]; !ok {
		return integrity("amortization_schedules_source_transaction_id_fkey", "referenced row does not exist")
	}
	switch {
	case !schedule.Strategy.Valid():
		return integrity("schedules_strategy_check", "check constraint failed")
	case schedule.TotalPeriods <= 0:
		return integrity("schedules_periods_check", "check constraint failed")
	case schedule.ResidualCents < 0:
		return integrity("schedules_residual_check", "check constraint failed")
	}
	switch schedule.Status {
	case domain.ScheduleActive, domain.ScheduleCompleted, domain.ScheduleCancelled:
	default:
		return integrity("schedules_status_check", "check constraint failed")
	}
	q.st.schedules[schedule.ID] = *schedule
	q.st.scheduleOrder = append(q.st.scheduleOrder, schedule.ID)
	return nil
}

func (q *queries) FindScheduleByID(ctx context.Context, scheduleID uuid.UUID) (*domain.AmortizationSchedule, error) {
	schedule, ok := q.st.schedules[scheduleID]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	return &schedule, nil
}

// ListSchedules returns schedules newest first.
func (q *queries) ListSchedules(ctx context.Context) ([]domain.AmortizationSchedule, error) {
	schedules := make([]domain.AmortizationSchedule, 0, len(q.st.scheduleOrder))
	for i := len(q.st.scheduleOrder) - 1; i >= 0; i-- {
		schedules = append(schedules, q.st.schedules[q.st.scheduleOrder[i]])
	}
	return schedules, nil
}

func (q *queries) LockActiveSchedules(ctx context.Context) ([]domain.DueSchedule, error) {
	due := make([]domain.DueSchedule, 0)
	for _, id := range q.st.scheduleOrder {
		schedule := q.st.schedules[id]
		if schedule.Status != domain.ScheduleActive {
			continue
		}
		source := q.st.transactions[q.st.txIndex[schedule.SourceTransactionID]]
		due = append(due, domain.DueSchedule{Schedule: schedule, PurchaseAmountCents: source.AmountCents})
	}
	return due, nil
}

func (q *queries) PostingExists(ctx context.Context, scheduleID uuid.UUID, period domain.Period) (bool, error) {
	_, ok := q.st.postings[postingKey{scheduleID: scheduleID, period: period}]
	return ok, nil
}

func (q *queries) CreatePosting(ctx context.Context, posting *domain.AmortizationPosting) error {
	if _, ok := q.st.schedules[posting.ScheduleID]; !ok {
		return integrity("amortization_postings_schedule_id_fkey", "referenced row does not exist")
	}
	if _, ok := q.st.txIndex[posting.TransactionID]; !ok {
		return integrity("amortization_postings_transaction_id_fkey", "referenced row does not exist")
	}
	if posting.AmountCents <= 0 {
		return integrity("postings_amount_check", "check constraint failed")
	}
	key := postingKey{scheduleID: posting.ScheduleID, period: posting.PeriodYm}
	if _, exists := q.st.postings[key]; exists {
		return integrity("amortization_postings_schedule_period_key", "duplicate value")
	}
	q.st.postings[key] = *posting
	return nil
}

func (q *queries) ListPostings(ctx context.Context, scheduleID uuid.UUID) ([]domain.AmortizationPosting, error) {
	postings := make([]domain.AmortizationPosting, 0)
	for key, posting := range q.st.postings {
		if key.scheduleID == scheduleID {
			postings = append(postings, posting)
		}
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].PeriodYm.Before(postings[j].PeriodYm)
	})
	return postings, nil
}

func (q *queries) UpdateScheduleStatus(ctx context.Context, scheduleID uuid.UUID, status domain.ScheduleStatus) error {
	schedule, ok := q.st.schedules[scheduleID]
	if !ok {
		return store.ErrScheduleNotFound
	}
	schedule.Status = status
	q.st.schedules[scheduleID] = schedule
	return nil
}

func (q *queries) CreateSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) error {
	if _, ok := q.st.accounts[snapshot.AccountID]; !ok {
		return integrity("balance_snapshots_account_id_fkey", "referenced row does not exist")
	}
	if snapshot.AdjustmentTransactionID != nil {
		if _, ok := q.st.txIndex[*snapshot.AdjustmentTransactionID]; !ok {
			return integrity("balance_snapshots_adjustment_transaction_id_fkey", "referenced row does not exist")
		}
	}
	q.st.snapshots = append(q.st.snapshots, *snapshot)
	return nil
}

// ListSnapshots returns the account's snapshots newest first.
func (q *queries) ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]domain.BalanceSnapshot, error) {
	snapshots := make([]domain.BalanceSnapshot, 0)
	for i := len(q.st.snapshots) - 1; i >= 0; i-- {
		if q.st.snapshots[i].AccountID == accountID {
			snapshots = append(snapshots, q.st.snapshots[i])
		}
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CapturedAt.After(snapshots[j].CapturedAt)
	})
	return snapshots, nil
}

func (q *queries) CreateCategory(ctx context.Context, category *domain.Category) error {
	for _, existing := range q.st.categories {
		if existing.Name == category.Name {
			return integrity("categories_name_key", "duplicate value")
		}
	}
	if category.ParentID != nil {
		if *category.ParentID == category.ID {
			return integrity("categories_parent_check", "check constraint failed")
		}
		if _, ok := q.st.categories[*category.ParentID]; !ok {
			return integrity("categories_parent_id_fkey", "referenced row does not exist")
		}
	}
	q.st.categories[category.ID] = *category
	return nil
}

func (q *queries) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, len(q.st.categories))
	for _, c := range q.st.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (q *queries) CreateTag(ctx context.Context, tag *domain.Tag) error {
	for _, existing := range q.st.tags {
		if existing.Name == tag.Name {
			return integrity("tags_name_key", "duplicate value")
		}
	}
	q.st.tags[tag.ID] = *tag
	return nil
}

func (q *queries) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags := make([]domain.Tag, 0, len(q.st.tags))
	for _, t := range q.st.tags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (q *queries) CreatePayee(ctx context.Context, payee *domain.Payee) error {
	for _, existing := range q.st.payees {
		if existing.Name == payee.Name {
			return integrity("payees_name_key", "duplicate value")
		}
	}
	if payee.DefaultCategoryID != nil {
		if _, ok := q.st.categories[*payee.DefaultCategoryID]; !ok {
			return integrity("payees_default_category_id_fkey", "referenced row does not exist")
		}
	}
	q.st.payees[payee.ID] = *payee
	return nil
}

func (q *queries) ListPayees(ctx context.Context) ([]domain.Payee, error) {
	payees := make([]domain.Payee, 0, len(q.st.payees))
	for _, p := range q.st.payees {
		payees = append(payees, p)
	}
	sort.Slice(payees, func(i, j int) bool { return payees[i].Name < payees[j].Name })
	return payees, nil
}

func (q *queries) CreateUser(ctx context.Context, user *domain.User) error {
	email := strings.ToLower(user.Email)
	for _, existing := range q.st.users {
		if existing.Email == email {
			return integrity("users_email_key", "duplicate value")
		}
	}
	stored := *user
	stored.Email = email
	q.st.users[user.ID] = stored
	return nil
}

func (q *queries) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range q.st.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (q *queries) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, ok := q.st.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

func (q *queries) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	if _, ok := q.st.users[token.UserID]; !ok {
		return integrity("refresh_tokens_user_id_fkey", "referenced row does not exist")
	}
	for _, existing := range q.st.tokens {
		if existing.TokenHash == token.TokenHash {
			return integrity("refresh_tokens_hash_key", "duplicate value")
		}
	}
	q.st.tokens[token.ID] = *token
	return nil
}

func (q *queries) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	for _, token := range q.st.tokens {
		if token.TokenHash == tokenHash {
			return &token, nil
		}
	}
	return nil, store.ErrRefreshTokenNotFound
}

func (q *queries) RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	token, ok := q.st.tokens[tokenID]
	if !ok || token.RevokedAt != nil {
		return store.ErrRefreshTokenNotFound
	}
	token.RevokedAt = &at
	q.st.tokens[tokenID] = token
	return nil
}

func (q *queries) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error {
	for id, token := range q.st.tokens {
		if token.TokenHash == tokenHash && token.RevokedAt == nil {
			token.RevokedAt = &at
			q.st.tokens[id] = token
		}
	}
	return nil
}
