// Package supabase stores Helios data in a Supabase project through its
// PostgREST API. Multi-row writes are buffered and applied by the
// helios_apply_ledger function defined in schema.sql.
package supabase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

// Schema creates the tables, the profile trigger and the ledger function.
//
//go:embed schema.sql
var Schema string

const conflictMarker = "ledger_conflict"

// Store talks to PostgREST with the service role key, which bypasses row level security.
type Store struct {
	baseURL string
	key     string
	client  *http.Client
}

// New creates a Store for the project at baseURL (e.g. https://xyz.supabase.co).
// A nil client gets a default one with a 30 second timeout.
func New(baseURL, serviceKey string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     serviceKey,
		client:  client,
	}
}

// apiError is the PostgREST error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s %s", e.Status, e.Code, e.Message)
}

type profileRow struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at,omitzero"`
}

func (r *profileRow) user() *ledger.User {
	ext := r.ID.String()

	return &ledger.User{
		ID:         r.ID,
		ExternalID: &ext,
		Email:      r.Email,
		Name:       r.Name,
		Balance:    r.Balance,
		CreatedAt:  r.CreatedAt,
	}
}

type projectRow struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	Capacity        string          `json:"capacity"`
	TotalShares     int64           `json:"total_shares"`
	AvailableShares int64           `json:"available_shares"`
	PricePerShare   decimal.Decimal `json:"price_per_share"`
	ExpectedYield   decimal.Decimal `json:"expected_yield"`
	Status          ledger.Status   `json:"status"`
	Image           string          `json:"image"`
	Description     string          `json:"description"`
}

func (r *projectRow) project() *ledger.Project {
	return &ledger.Project{
		ID:              r.ID,
		Name:            r.Name,
		Location:        r.Location,
		Capacity:        r.Capacity,
		Image:           r.Image,
		Description:     r.Description,
		TotalShares:     r.TotalShares,
		AvailableShares: r.AvailableShares,
		PricePerShare:   r.PricePerShare,
		ExpectedYield:   r.ExpectedYield,
		Status:          r.Status,
	}
}

func newProjectRow(p *ledger.Project) projectRow {
	return projectRow{
		ID:              p.ID,
		Name:            p.Name,
		Location:        p.Location,
		Capacity:        p.Capacity,
		TotalShares:     p.TotalShares,
		AvailableShares: p.AvailableShares,
		PricePerShare:   p.PricePerShare,
		ExpectedYield:   p.ExpectedYield,
		Status:          p.Status,
		Image:           p.Image,
		Description:     p.Description,
	}
}

type investmentRow struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	ProjectID string          `json:"project_id"`
	Shares    int64           `json:"shares"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`

	Project *struct {
		Name          string          `json:"name"`
		Location      string          `json:"location"`
		Image         string          `json:"image"`
		ExpectedYield decimal.Decimal `json:"expected_yield"`
	} `json:"projects,omitempty"`
}

type transactionRow struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	Type        ledger.TransactionType `json:"type"`
	ProjectName *string                `json:"project_name"`
	Amount      decimal.Decimal        `json:"amount"`
	CreatedAt   time.Time              `json:"created_at"`
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	return s.getProfile(ctx, "id", id.String())
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	return s.getProfile(ctx, "email", email)
}

// GetUserByExternalID looks up the profile keyed by the auth user ID.
func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*ledger.User, error) {
	id, err := uuid.Parse(externalID)
	if err != nil {
		return nil, ledger.ErrNotFound
	}

	return s.GetUser(ctx, id)
}

func (s *Store) getProfile(ctx context.Context, column, value string) (*ledger.User, error) {
	q := url.Values{}
	q.Set("select", "id,email,name,balance,created_at")
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	var rows []profileRow
	if _, err := s.do(ctx, http.MethodGet, "/rest/v1/profiles", q, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	if len(rows) == 0 {
		return nil, ledger.ErrNotFound
	}

	return rows[0].user(), nil
}

// CreateUser inserts a profile. Supabase profiles have no password and their
// ID is the auth user ID, so an external ID, when set, becomes the row ID.
func (s *Store) CreateUser(ctx context.Context, u *ledger.User) error {
	if u.ExternalID != nil {
		id, err := uuid.Parse(*u.ExternalID)
		if err != nil {
			return fmt.Errorf("external id %q is not a uuid: %w", *u.ExternalID, err)
		}

		u.ID = id
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	row := profileRow{ID: u.ID, Email: u.Email, Name: u.Name, Balance: u.Balance}

	var created []profileRow
	if _, err := s.do(ctx, http.MethodPost, "/rest/v1/profiles", nil, []profileRow{row}, &created, "return=representation"); err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}

	if len(created) > 0 {
		u.CreatedAt = created[0].CreatedAt
	}

	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*ledger.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "id.asc")

	var rows []projectRow
	if _, err := s.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	out := make([]*ledger.Project, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].project())
	}

	return out, nil
}

func (s *Store) getProject(ctx context.Context, id string) (*ledger.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []projectRow
	if _, err := s.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}

	if len(rows) == 0 {
		return nil, ledger.ErrNotFound
	}

	return rows[0].project(), nil
}

// CountProjects reads the exact count from the Content-Range header.
func (s *Store) CountProjects(ctx context.Context) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")

	var rows []json.RawMessage

	h, err := s.do(ctx, http.MethodGet, "/rest/v1/projects", q, nil, &rows, "count=exact")
	if err != nil {
		return 0, fmt.Errorf("counting projects: %w", err)
	}

	return parseContentRangeTotal(h.Get("Content-Range"))
}

func parseContentRangeTotal(v string) (int, error) {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("content-range %q has no total", v)
	}

	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parsing content-range %q: %w", v, err)
	}

	return n, nil
}

func (s *Store) CreateProjects(ctx context.Context, projects []*ledger.Project) error {
	rows := make([]projectRow, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, newProjectRow(p))
	}

	if _, err := s.do(ctx, http.MethodPost, "/rest/v1/projects", nil, rows, nil, "return=minimal"); err != nil {
		return fmt.Errorf("creating projects: %w", err)
	}

	return nil
}

func (s *Store) ListHoldings(ctx context.Context, userID uuid.UUID) ([]*ledger.Holding, error) {
	q := url.Values{}
	q.Set("select", "*,projects(name,location,image,expected_yield)")
	q.Set("user_id", "eq."+userID.String())
	q.Set("order", "created_at.asc")

	var rows []investmentRow
	if _, err := s.do(ctx, http.MethodGet, "/rest/v1/investments", q, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}

	out := make([]*ledger.Holding, 0, len(rows))

	for _, r := range rows {
		h := &ledger.Holding{
			Investment: ledger.Investment{
				ID:        r.ID,
				UserID:    r.UserID,
				ProjectID: r.ProjectID,
				Shares:    r.Shares,
				Amount:    r.Amount,
				Timestamp: r.CreatedAt,
			},
		}

		if r.Project != nil {
			h.ProjectName = r.Project.Name
			h.Location = r.Project.Location
			h.Image = r.Project.Image
			h.ExpectedYield = r.Project.ExpectedYield
		}

		out = append(out, h)
	}

	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*ledger.Transaction, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID.String())
	q.Set("order", "created_at.desc")

	var rows []transactionRow
	if _, err := s.do(ctx, http.MethodGet, "/rest/v1/transactions", q, nil, &rows, ""); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	out := make([]*ledger.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, &ledger.Transaction{
			ID:          r.ID,
			UserID:      r.UserID,
			Type:        r.Type,
			ProjectName: r.ProjectName,
			Amount:      r.Amount,
			Timestamp:   r.CreatedAt,
		})
	}

	return out, nil
}

// do sends a PostgREST request and decodes a JSON response into out, if non-nil.
func (s *Store) do(ctx context.Context, method, path string, q url.Values, body, out any, prefer string) (http.Header, error) {
	u := s.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}

		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(b))
	}

	switch {
	case strings.Contains(apiErr.Message, conflictMarker):
		return fmt.Errorf("%w: %w", ledger.ErrConflict, apiErr)
	case apiErr.Code == "23505" || resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %w", ledger.ErrDuplicateIdentity, apiErr)
	}

	return apiErr
}

// Begin starts a buffered unit. Reads go straight to PostgREST; writes are
// sent in a single RPC call on Commit.
func (s *Store) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &unit{
		s:         s,
		ctx:       ctx,
		balances:  make(map[uuid.UUID]decimal.Decimal),
		inventory: make(map[string]int64),
	}, nil
}

type balanceUpdate struct {
	UserID   uuid.UUID       `json:"user_id"`
	Expected decimal.Decimal `json:"expected"`
	Next     decimal.Decimal `json:"next"`
}

type inventoryUpdate struct {
	ProjectID string `json:"project_id"`
	Expected  int64  `json:"expected"`
	Next      int64  `json:"next"`
}

type applyPayload struct {
	Balances     []balanceUpdate   `json:"balances"`
	Inventory    []inventoryUpdate `json:"inventory"`
	Investments  []investmentRow   `json:"investments"`
	Transactions []transactionRow  `json:"transactions"`
}

type unit struct {
	s    *Store
	ctx  context.Context
	done bool

	payload   applyPayload
	balances  map[uuid.UUID]decimal.Decimal
	inventory map[string]int64
}

func (u *unit) GetUser(ctx context.Context, id uuid.UUID) (*ledger.User, error) {
	user, err := u.s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if b, ok := u.balances[id]; ok {
		user.Balance = b
	}

	return user, nil
}

func (u *unit) GetProject(ctx context.Context, id string) (*ledger.Project, error) {
	p, err := u.s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if n, ok := u.inventory[id]; ok {
		p.AvailableShares = n
	}

	return p, nil
}

func (u *unit) UpdateBalance(ctx context.Context, userID uuid.UUID, expected, next decimal.Decimal) error {
	if b, ok := u.balances[userID]; ok && !b.Equal(expected) {
		return ledger.ErrConflict
	}

	if next.IsNegative() {
		return fmt.Errorf("balance would become %s: %w", next, ledger.ErrInsufficientFunds)
	}

	u.balances[userID] = next
	u.payload.Balances = append(u.payload.Balances, balanceUpdate{UserID: userID, Expected: expected, Next: next})

	return nil
}

func (u *unit) UpdateAvailableShares(ctx context.Context, projectID string, expected, next int64) error {
	if n, ok := u.inventory[projectID]; ok && n != expected {
		return ledger.ErrConflict
	}

	if next < 0 {
		return fmt.Errorf("available shares would become %d: %w", next, ledger.ErrInsufficientInventory)
	}

	u.inventory[projectID] = next
	u.payload.Inventory = append(u.payload.Inventory, inventoryUpdate{ProjectID: projectID, Expected: expected, Next: next})

	return nil
}

func (u *unit) InsertInvestment(ctx context.Context, inv *ledger.Investment) error {
	u.payload.Investments = append(u.payload.Investments, investmentRow{
		ID:        inv.ID,
		UserID:    inv.UserID,
		ProjectID: inv.ProjectID,
		Shares:    inv.Shares,
		Amount:    inv.Amount,
		CreatedAt: inv.Timestamp,
	})

	return nil
}

func (u *unit) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	u.payload.Transactions = append(u.payload.Transactions, transactionRow{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        tx.Type,
		ProjectName: tx.ProjectName,
		Amount:      tx.Amount,
		CreatedAt:   tx.Timestamp,
	})

	return nil
}

// Commit applies every buffered write in one database transaction.
// A stale compare-and-set surfaces as ledger.ErrConflict.
func (u *unit) Commit() error {
	if u.done {
		return errors.New("unit already finished")
	}

	u.done = true

	body := map[string]applyPayload{"payload": u.payload}
	if _, err := u.s.do(u.ctx, http.MethodPost, "/rest/v1/rpc/helios_apply_ledger", nil, body, nil, ""); err != nil {
		return fmt.Errorf("applying ledger: %w", err)
	}

	return nil
}

func (u *unit) Rollback() error {
	u.done = true
	return nil
}

var (
	_ ledger.Repository  = (*Store)(nil)
	_ profile.Repository = (*Store)(nil)
)
