package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"xp-cashout/pkg/models"
	"xp-cashout/services/xp/internal/entity"
	"xp-cashout/services/xp/internal/repo/persistent"

	"github.com/google/uuid"
)

// memStore is a transactional in-memory persistent.Store. The outermost
// Transaction holds a global lock, which stands in for the per-user row lock;
// nested transactions behave like savepoints.
type memStore struct {
	db    *memDB
	depth int
}

type memDB struct {
	mu    sync.Mutex
	state *memState

	failOps    map[string]error
	failNonces map[string]bool
	// onRollback runs after a failed outermost transaction is undone, to
	// simulate writes committed by a concurrent request.
	onRollback []func(st *memState)
}

type idemRecord struct {
	body      string
	expiresAt time.Time
}

type nonceRecord struct {
	expiresAt time.Time
}

type memState struct {
	ledger      []entity.LedgerEntry
	idem        map[string]idemRecord
	nonces      map[string]nonceRecord
	windows     map[string]int
	withdrawals []entity.Withdrawal
	referrals   []entity.Referral
	rates       []entity.ConversionRate
	profiles    map[string]entity.Profile
	risky       map[string]bool
	codes       map[string]string
}

func newMemStore() *memStore {
	return &memStore{db: &memDB{
		state: &memState{
			idem:     map[string]idemRecord{},
			nonces:   map[string]nonceRecord{},
			windows:  map[string]int{},
			profiles: map[string]entity.Profile{},
			risky:    map[string]bool{},
			codes:    map[string]string{},
		},
		failOps:    map[string]error{},
		failNonces: map[string]bool{},
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		ledger:      append([]entity.LedgerEntry(nil), st.ledger...),
		idem:        make(map[string]idemRecord, len(st.idem)),
		nonces:      make(map[string]nonceRecord, len(st.nonces)),
		windows:     make(map[string]int, len(st.windows)),
		withdrawals: append([]entity.Withdrawal(nil), st.withdrawals...),
		referrals:   append([]entity.Referral(nil), st.referrals...),
		rates:       append([]entity.ConversionRate(nil), st.rates...),
		profiles:    make(map[string]entity.Profile, len(st.profiles)),
		risky:       make(map[string]bool, len(st.risky)),
		codes:       make(map[string]string, len(st.codes)),
	}
	for k, v := range st.idem {
		c.idem[k] = v
	}
	for k, v := range st.nonces {
		c.nonces[k] = v
	}
	for k, v := range st.windows {
		c.windows[k] = v
	}
	for k, v := range st.profiles {
		c.profiles[k] = v
	}
	for k, v := range st.risky {
		c.risky[k] = v
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	return c
}

// do runs fn against the current state, locking when outside a transaction.
func (s *memStore) do(op string, fn func(st *memState) error) error {
	if s.depth == 0 {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	if err, ok := s.db.failOps[op]; ok {
		return err
	}
	return fn(s.db.state)
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx persistent.Store) error) error {
	if s.depth == 0 {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	snapshot := s.db.state.clone()
	err := fn(&memStore{db: s.db, depth: s.depth + 1})
	if err != nil {
		s.db.state = snapshot
		if s.depth == 0 {
			for _, hook := range s.db.onRollback {
				hook(s.db.state)
			}
			s.db.onRollback = nil
		}
	}
	return err
}

func (s *memStore) Ping(ctx context.Context) error {
	return s.do("ping", func(st *memState) error { return nil })
}

func (s *memStore) Ledger() persistent.LedgerRepository { return memLedger{s} }
func (s *memStore) Idempotency() persistent.IdempotencyRepository { return memIdempotency{s} }
func (s *memStore) Nonces() persistent.NonceRepository { return memNonces{s} }
func (s *memStore) RateLimits() persistent.RateLimitRepository { return memRateLimits{s} }
func (s *memStore) Withdrawals() persistent.WithdrawalRepository { return memWithdrawals{s} }
func (s *memStore) Referrals() persistent.ReferralRepository { return memReferrals{s} }
func (s *memStore) ConversionRates() persistent.ConversionRateRepository { return memRates{s} }
func (s *memStore) Profiles() persistent.ProfileRepository { return memProfiles{s} }

// seeding helpers, used outside transactions

func (s *memStore) addProfile(userID string, phone, email *string) {
	s.db.state.profiles[userID] = entity.Profile{
		ID:            userID,
		Phone:         phone,
		Email:         email,
		KYCLevel:      string(models.KYCLevelNone),
		Status:        string(models.ProfileStatusActive),
		PayoutContact: (&models.UserProfile{Phone: phone, Email: email}).PayoutContact(),
	}
}

func (s *memStore) addLedger(userID, source string, delta int64, at time.Time) {
	s.db.state.ledger = append(s.db.state.ledger, entity.LedgerEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Source:    source,
		XPDelta:   delta,
		Metadata:  json.RawMessage(`{}`),
		CreatedAt: at,
	})
}

func (s *memStore) ledgerCount(userID string) int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, e := range s.db.state.ledger {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) balance(userID string) int64 {
	b, _ := s.Ledger().Balance(context.Background(), userID)
	return b
}

func idemKey(key, userID string) string { return key + "|" + userID }

// ledger

type memLedger struct{ s *memStore }

func (r memLedger) Append(ctx context.Context, e *entity.LedgerEntry) error {
	return r.s.do("ledger.append", func(st *memState) error {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		if len(e.Metadata) == 0 {
			e.Metadata = json.RawMessage(`{}`)
		}
		if e.Source == entity.SourceReferralReward {
			// Mirrors the partial unique index: a missing referral_id is NULL and never collides.
			id := metadataField(e.Metadata, "referral_id")
			for _, existing := range st.ledger {
				if id != "" && existing.Source == entity.SourceReferralReward && metadataField(existing.Metadata, "referral_id") == id {
					return persistent.ErrDuplicate
				}
			}
		}
		st.ledger = append(st.ledger, *e)
		return nil
	})
}

func metadataField(raw json.RawMessage, field string) string {
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	v, _ := m[field].(string)
	return v
}

func (r memLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.s.do("ledger.balance", func(st *memState) error {
		for _, e := range st.ledger {
			if e.UserID == userID {
				total += e.XPDelta
			}
		}
		return nil
	})
	return total, err
}

func (r memLedger) CreditedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := r.s.do("ledger.credited_since", func(st *memState) error {
		for _, e := range st.ledger {
			if e.UserID == userID && e.XPDelta > 0 && e.Source != entity.SourceReferralReward && !e.CreatedAt.Before(since) {
				total += e.XPDelta
			}
		}
		return nil
	})
	return total, err
}

func (r memLedger) SumBySource(ctx context.Context, userID, source string) (int64, error) {
	var total int64
	err := r.s.do("ledger.sum_by_source", func(st *memState) error {
		for _, e := range st.ledger {
			if e.UserID == userID && e.Source == source {
				total += e.XPDelta
			}
		}
		return nil
	})
	return total, err
}

func (r memLedger) History(ctx context.Context, userID string, before *entity.LedgerCursor, limit int) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	err := r.s.do("ledger.history", func(st *memState) error {
		var entries []entity.LedgerEntry
		for _, e := range st.ledger {
			if e.UserID == userID {
				entries = append(entries, e)
			}
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
				return entries[i].ID > entries[j].ID
			}
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
		for i := range entries {
			e := entries[i]
			if before != nil {
				older := e.CreatedAt.Before(before.CreatedAt) ||
					(e.CreatedAt.Equal(before.CreatedAt) && e.ID < before.ID)
				if !older {
					continue
				}
			}
			out = append(out, &e)
			if len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// idempotency

type memIdempotency struct{ s *memStore }

func (r memIdempotency) Lookup(ctx context.Context, key, userID string, now time.Time) ([]byte, bool, error) {
	var body []byte
	var found bool
	err := r.s.do("idempotency.lookup", func(st *memState) error {
		rec, ok := st.idem[idemKey(key, userID)]
		if ok && rec.expiresAt.After(now) {
			body, found = []byte(rec.body), true
		}
		return nil
	})
	return body, found, err
}

func (r memIdempotency) Store(ctx context.Context, key, userID string, body []byte, expiresAt, now time.Time) error {
	return r.s.do("idempotency.store", func(st *memState) error {
		k := idemKey(key, userID)
		if rec, ok := st.idem[k]; ok && rec.expiresAt.After(now) {
			return persistent.ErrIdempotencyRace
		}
		st.idem[k] = idemRecord{body: string(body), expiresAt: expiresAt}
		return nil
	})
}

func (r memIdempotency) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.do("idempotency.purge", func(st *memState) error {
		for k, rec := range st.idem {
			if !rec.expiresAt.After(now) {
				delete(st.idem, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// nonces

type memNonces struct{ s *memStore }

func (r memNonces) Seen(ctx context.Context, nonce, userID string, now time.Time) (bool, error) {
	var seen bool
	err := r.s.do("nonce.seen", func(st *memState) error {
		rec, ok := st.nonces[nonce+"|"+userID]
		seen = ok && rec.expiresAt.After(now)
		return nil
	})
	return seen, err
}

func (r memNonces) Record(ctx context.Context, nonce, userID, source string, xpDelta int64, expiresAt, now time.Time) (bool, error) {
	var recorded bool
	err := r.s.do("nonce.record", func(st *memState) error {
		if r.s.db.failNonces[nonce] {
			return fmt.Errorf("storage failure for nonce %s", nonce)
		}
		k := nonce + "|" + userID
		if rec, ok := st.nonces[k]; ok && rec.expiresAt.After(now) {
			return nil
		}
		st.nonces[k] = nonceRecord{expiresAt: expiresAt}
		recorded = true
		return nil
	})
	return recorded, err
}

func (r memNonces) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.do("nonce.purge", func(st *memState) error {
		for k, rec := range st.nonces {
			if !rec.expiresAt.After(now) {
				delete(st.nonces, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// rate limits

type memRateLimits struct{ s *memStore }

func windowKey(identifier, endpoint string, start time.Time) string {
	return identifier + "|" + endpoint + "|" + start.UTC().Format(time.RFC3339)
}

func (r memRateLimits) Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time) (int, error) {
	var count int
	err := r.s.do("ratelimit.increment", func(st *memState) error {
		k := windowKey(identifier, endpoint, windowStart)
		st.windows[k]++
		count = st.windows[k]
		return nil
	})
	return count, err
}

func (r memRateLimits) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.do("ratelimit.purge", func(st *memState) error {
		for k := range st.windows {
			parts := strings.Split(k, "|")
			start, _ := time.Parse(time.RFC3339, parts[len(parts)-1])
			if start.Before(before) {
				delete(st.windows, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// withdrawals

type memWithdrawals struct{ s *memStore }

func (r memWithdrawals) Create(ctx context.Context, w *entity.Withdrawal) error {
	return r.s.do("withdrawal.create", func(st *memState) error {
		if w.ID == "" {
			w.ID = uuid.New().String()
		}
		st.withdrawals = append(st.withdrawals, *w)
		return nil
	})
}

func (r memWithdrawals) sorted(st *memState, keep func(w entity.Withdrawal) bool, newestFirst bool) []*entity.Withdrawal {
	var out []*entity.Withdrawal
	for i := range st.withdrawals {
		if keep(st.withdrawals[i]) {
			w := st.withdrawals[i]
			out = append(out, &w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r memWithdrawals) Recent(ctx context.Context, userID string, limit int) ([]*entity.Withdrawal, error) {
	var out []*entity.Withdrawal
	err := r.s.do("withdrawal.recent", func(st *memState) error {
		out = r.sorted(st, func(w entity.Withdrawal) bool { return w.UserID == userID }, true)
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r memWithdrawals) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := r.s.do("withdrawal.count_since", func(st *memState) error {
		for _, w := range st.withdrawals {
			if w.UserID == userID && !w.CreatedAt.Before(since) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memWithdrawals) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Withdrawal, int64, error) {
	var out []*entity.Withdrawal
	var total int64
	err := r.s.do("withdrawal.list", func(st *memState) error {
		all := r.sorted(st, func(w entity.Withdrawal) bool { return w.UserID == userID }, true)
		total = int64(len(all))
		if offset < len(all) {
			all = all[offset:]
			if len(all) > limit {
				all = all[:limit]
			}
			out = all
		}
		return nil
	})
	return out, total, err
}

func (r memWithdrawals) ListByStatus(ctx context.Context, status entity.WithdrawalStatus, limit int) ([]*entity.Withdrawal, error) {
	var out []*entity.Withdrawal
	err := r.s.do("withdrawal.list_by_status", func(st *memState) error {
		out = r.sorted(st, func(w entity.Withdrawal) bool { return w.Status == status }, false)
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r memWithdrawals) GetForUpdate(ctx context.Context, id string) (*entity.Withdrawal, error) {
	var out *entity.Withdrawal
	err := r.s.do("withdrawal.get", func(st *memState) error {
		for i := range st.withdrawals {
			if st.withdrawals[i].ID == id {
				w := st.withdrawals[i]
				out = &w
				return nil
			}
		}
		return persistent.ErrNotFound
	})
	return out, err
}

func (r memWithdrawals) Update(ctx context.Context, w *entity.Withdrawal) error {
	return r.s.do("withdrawal.update", func(st *memState) error {
		for i := range st.withdrawals {
			if st.withdrawals[i].ID == w.ID {
				st.withdrawals[i] = *w
				return nil
			}
		}
		return persistent.ErrNotFound
	})
}

// referrals

type memReferrals struct{ s *memStore }

func (r memReferrals) Create(ctx context.Context, ref *entity.Referral) error {
	return r.s.do("referral.create", func(st *memState) error {
		for _, existing := range st.referrals {
			if existing.ReferredID == ref.ReferredID {
				return persistent.ErrDuplicate
			}
		}
		if ref.ID == "" {
			ref.ID = uuid.New().String()
		}
		st.referrals = append(st.referrals, *ref)
		return nil
	})
}

func (r memReferrals) find(keep func(ref entity.Referral) bool) (*entity.Referral, error) {
	var out *entity.Referral
	err := r.s.do("referral.get", func(st *memState) error {
		for i := range st.referrals {
			if keep(st.referrals[i]) {
				ref := st.referrals[i]
				out = &ref
				return nil
			}
		}
		return persistent.ErrNotFound
	})
	return out, err
}

func (r memReferrals) GetByReferred(ctx context.Context, referredID string) (*entity.Referral, error) {
	return r.find(func(ref entity.Referral) bool { return ref.ReferredID == referredID })
}

func (r memReferrals) GetForUpdate(ctx context.Context, id string) (*entity.Referral, error) {
	return r.find(func(ref entity.Referral) bool { return ref.ID == id })
}

func (r memReferrals) Update(ctx context.Context, ref *entity.Referral) error {
	return r.s.do("referral.update", func(st *memState) error {
		for i := range st.referrals {
			if st.referrals[i].ID == ref.ID {
				st.referrals[i] = *ref
				return nil
			}
		}
		return persistent.ErrNotFound
	})
}

func (r memReferrals) ListByReferrer(ctx context.Context, referrerID string) ([]*entity.Referral, error) {
	var out []*entity.Referral
	err := r.s.do("referral.list", func(st *memState) error {
		for i := range st.referrals {
			if st.referrals[i].ReferrerID == referrerID {
				ref := st.referrals[i]
				out = append(out, &ref)
			}
		}
		return nil
	})
	return out, err
}

func (r memReferrals) CountByStatus(ctx context.Context, referrerID string) (map[entity.ReferralStatus]int64, error) {
	counts := map[entity.ReferralStatus]int64{}
	err := r.s.do("referral.count", func(st *memState) error {
		for _, ref := range st.referrals {
			if ref.ReferrerID == referrerID {
				counts[ref.Status]++
			}
		}
		return nil
	})
	return counts, err
}

// conversion rates

type memRates struct{ s *memStore }

func (r memRates) Current(ctx context.Context, now time.Time) (*entity.ConversionRate, error) {
	var out *entity.ConversionRate
	err := r.s.do("rate.current", func(st *memState) error {
		for i := range st.rates {
			rate := st.rates[i]
			if rate.EffectiveFrom.After(now) {
				continue
			}
			if out == nil || rate.EffectiveFrom.After(out.EffectiveFrom) {
				out = &rate
			}
		}
		if out == nil {
			return persistent.ErrNotFound
		}
		return nil
	})
	return out, err
}

// profiles

type memProfiles struct{ s *memStore }

func (r memProfiles) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	var out *entity.Profile
	err := r.s.do("profile.get", func(st *memState) error {
		p, ok := st.profiles[userID]
		if !ok {
			return persistent.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProfiles) Bootstrap(ctx context.Context, userID string, email *string) error {
	return r.s.do("profile.bootstrap", func(st *memState) error {
		if _, ok := st.profiles[userID]; !ok {
			st.profiles[userID] = entity.Profile{
				ID:            userID,
				Email:         email,
				KYCLevel:      string(models.KYCLevelNone),
				Status:        string(models.ProfileStatusActive),
				PayoutContact: (&models.UserProfile{Email: email}).PayoutContact(),
			}
		}
		return nil
	})
}

func (r memProfiles) Lock(ctx context.Context, userID string) (*entity.Profile, error) {
	return r.Get(ctx, userID)
}

func (r memProfiles) HasRiskyDevice(ctx context.Context, userID string) (bool, error) {
	var risky bool
	err := r.s.do("profile.risky", func(st *memState) error {
		risky = st.risky[userID]
		return nil
	})
	return risky, err
}

func (r memProfiles) ReferralCode(ctx context.Context, userID string) (string, error) {
	var code string
	err := r.s.do("profile.code", func(st *memState) error {
		c, ok := st.codes[userID]
		if !ok {
			return persistent.ErrNotFound
		}
		code = c
		return nil
	})
	return code, err
}

func (r memProfiles) EnsureReferralCode(ctx context.Context, userID string) (string, error) {
	var code string
	err := r.s.do("profile.ensure_code", func(st *memState) error {
		c, ok := st.codes[userID]
		if !ok {
			c = models.NewReferralCode()
			st.codes[userID] = c
		}
		code = c
		return nil
	})
	return code, err
}

func (r memProfiles) FindByReferralCode(ctx context.Context, code string) (string, error) {
	var userID string
	err := r.s.do("profile.find_code", func(st *memState) error {
		for u, c := range st.codes {
			if c == code {
				userID = u
				return nil
			}
		}
		return persistent.ErrNotFound
	})
	return userID, err
}
