package services

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/EZGGdotxyz/ezgg-service/internal/clients"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
	"github.com/EZGGdotxyz/ezgg-service/internal/repository"
)

// In-memory repository fakes. They reproduce the guarded-update semantics
// of the gorm implementations so the services can be tested without a
// database.

type fakeChainRepo struct {
	mu        sync.Mutex
	chains    []*models.BlockChain
	tokens    []*models.TokenContract
	contracts []*models.BizContract
	nextID    uint
}

func (f *fakeChainRepo) ListBlockChain(ctx context.Context, platform models.BlockChainPlatform, network *models.BlockChainNetwork) ([]*models.BlockChain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BlockChain
	for _, c := range f.chains {
		if c.Platform == platform && c.Show && (network == nil || c.Network == *network) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChainRepo) FindBlockChain(ctx context.Context, platform models.BlockChainPlatform, chainID int64) (*models.BlockChain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chains {
		if c.Platform == platform && c.ChainID == chainID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeChainRepo) UpdateNativePrice(ctx context.Context, platform models.BlockChainPlatform, chainID int64, price string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chains {
		if c.Platform == platform && c.ChainID == chainID {
			c.TokenPrice = price
		}
	}
	return nil
}

func (f *fakeChainRepo) ListTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.TokenContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TokenContract
	for _, t := range f.tokens {
		if t.Platform == platform && t.ChainID == chainID && t.Show {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeChainRepo) FindTokenContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, address string) (*models.TokenContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Platform == platform && t.ChainID == chainID && t.Address == address {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeChainRepo) CreateTokenContract(ctx context.Context, token *models.TokenContract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	token.ID = f.nextID
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeChainRepo) UpdateTokenPrice(ctx context.Context, id uint, currency, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.ID == id {
			now := time.Now()
			t.PriceCurrency = &currency
			t.PriceValue = &value
			t.PriceUpdateAt = &now
		}
	}
	return nil
}

func (f *fakeChainRepo) FindBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64, business models.Business) (*models.BizContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.BizContract
	for _, c := range f.contracts {
		if c.Platform == platform && c.ChainID == chainID && c.Business == business && c.Enabled {
			if best == nil || c.Ver > best.Ver {
				best = c
			}
		}
	}
	return best, nil
}

func (f *fakeChainRepo) ListBizContract(ctx context.Context, platform models.BlockChainPlatform, chainID int64) ([]*models.BizContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BizContract
	for _, c := range f.contracts {
		if c.Platform == platform && c.ChainID == chainID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeTransRepo struct {
	mu        sync.Mutex
	rows      []*models.TransactionHistory
	estimates map[string]*models.TransactionFeeEstimate
	nextID    uint
}

func newFakeTransRepo() *fakeTransRepo {
	return &fakeTransRepo{estimates: make(map[string]*models.TransactionFeeEstimate)}
}

func (f *fakeTransRepo) Create(ctx context.Context, trans *models.TransactionHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	trans.ID = f.nextID
	f.rows = append(f.rows, trans)
	return nil
}

func (f *fakeTransRepo) GetByID(ctx context.Context, id uint) (*models.TransactionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.ID == id {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeTransRepo) GetByCode(ctx context.Context, code string) (*models.TransactionHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.TransactionCode == code {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeTransRepo) Page(ctx context.Context, q repository.TransactionQuery) ([]*models.TransactionHistory, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TransactionHistory
	for _, t := range f.rows {
		involved := t.MemberID == q.MemberID ||
			(t.SenderMemberID != nil && *t.SenderMemberID == q.MemberID) ||
			(t.ReceiverMemberID != nil && *t.ReceiverMemberID == q.MemberID)
		if !involved {
			continue
		}
		// unsettled rows are hidden unless they are money requests
		if !t.Settled() && t.TransactionCategory != models.CategoryRequest {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionTime.After(out[j].TransactionTime) })
	return out, int64(len(out)), nil
}

func (f *fakeTransRepo) Settle(ctx context.Context, id uint, hash string, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settleLocked(id, hash, updates)
}

func (f *fakeTransRepo) settleLocked(id uint, hash string, updates map[string]interface{}) (bool, error) {
	for _, t := range f.rows {
		if t.ID != id {
			continue
		}
		if t.TransactionHash != "" {
			return false, nil
		}
		t.TransactionHash = hash
		for key, value := range updates {
			switch key {
			case "transaction_status":
				t.TransactionStatus = value.(models.TransactionStatus)
			case "transaction_confirm_at":
				at := value.(time.Time)
				t.TransactionConfirmAt = &at
			case "sender_member_id":
				v := value.(int64)
				t.SenderMemberID = &v
			case "sender_did":
				v := value.(string)
				t.SenderDid = &v
			case "sender_wallet_address":
				v := value.(string)
				t.SenderWalletAddress = &v
			case "receiver_member_id":
				v := value.(int64)
				t.ReceiverMemberID = &v
			case "receiver_did":
				v := value.(string)
				t.ReceiverDid = &v
			case "receiver_wallet_address":
				v := value.(string)
				t.ReceiverWalletAddress = &v
			default:
				return false, fmt.Errorf("unexpected update column %q", key)
			}
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeTransRepo) AdvanceStatus(ctx context.Context, id uint, from, to models.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advanceLocked(id, from, to)
}

func (f *fakeTransRepo) advanceLocked(id uint, from, to models.TransactionStatus) (bool, error) {
	for _, t := range f.rows {
		if t.ID == id && t.TransactionStatus == from {
			t.TransactionStatus = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTransRepo) GetFeeEstimate(ctx context.Context, transactionCode string) (*models.TransactionFeeEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.estimates[transactionCode]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeTransRepo) ListFeeEstimates(ctx context.Context, ids []uint) ([]*models.TransactionFeeEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TransactionFeeEstimate
	for _, e := range f.estimates {
		for _, id := range ids {
			if e.TransactionHistoryID == id {
				clone := *e
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (f *fakeTransRepo) ReplaceFeeEstimate(ctx context.Context, estimate *models.TransactionFeeEstimate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prior, ok := f.estimates[estimate.TransactionCode]; ok {
		estimate.ID = prior.ID
	} else {
		f.nextID++
		estimate.ID = f.nextID
	}
	f.estimates[estimate.TransactionCode] = estimate
	return nil
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	links []*models.PayLink
	trans *fakeTransRepo
}

func (f *fakeLinkRepo) GetByCode(ctx context.Context, transactionCode string) (*models.PayLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.TransactionCode == transactionCode {
			clone := *l
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkRepo) CreateIfAbsent(ctx context.Context, link *models.PayLink) (*models.PayLink, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.TransactionCode == link.TransactionCode {
			clone := *l
			return &clone, false, nil
		}
	}
	link.ID = uint(len(f.links) + 1)
	f.links = append(f.links, link)
	clone := *link
	return &clone, true, nil
}

func (f *fakeLinkRepo) Settle(ctx context.Context, link *models.PayLink, transactionID uint, hash string, settlement repository.PayLinkSettlement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.ID != link.ID {
			continue
		}
		if l.TransactionHash != "" {
			return false, nil
		}
		f.trans.mu.Lock()
		var pending bool
		for _, t := range f.trans.rows {
			if t.ID == transactionID && t.TransactionStatus == models.StatusPending {
				pending = true
			}
		}
		if pending {
			for _, t := range f.trans.rows {
				if t.ID == transactionID {
					t.TransactionStatus = models.StatusAccepted
					now := time.Now()
					t.TransactionConfirmAt = &now
					if settlement.ReceiverMemberID != nil {
						t.ReceiverMemberID = settlement.ReceiverMemberID
						t.ReceiverDid = settlement.ReceiverDid
						t.ReceiverWalletAddress = settlement.ReceiverWalletAddress
					}
				}
			}
		}
		f.trans.mu.Unlock()
		if !pending {
			return false, fmt.Errorf("transaction %d not pending", transactionID)
		}
		l.TransactionHash = hash
		return true, nil
	}
	return false, nil
}

type fakeMemberRepo struct {
	mu            sync.Mutex
	recents       []*models.MemberRecent
	notifications []*models.Notification
}

func (f *fakeMemberRepo) TouchRecent(ctx context.Context, memberID, relateMemberID int64, action models.RecentAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recents {
		same := (r.MemberID == memberID && r.RelateMemberID == relateMemberID) ||
			(r.MemberID == relateMemberID && r.RelateMemberID == memberID)
		if same {
			r.MemberID = memberID
			r.RelateMemberID = relateMemberID
			r.Action = action
			r.Recent = time.Now()
			return nil
		}
	}
	f.recents = append(f.recents, &models.MemberRecent{
		MemberID:       memberID,
		RelateMemberID: relateMemberID,
		Action:         action,
		Recent:         time.Now(),
	})
	return nil
}

func (f *fakeMemberRepo) ListRecent(ctx context.Context, memberID int64, limit int) ([]*models.MemberRecent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MemberRecent
	for _, r := range f.recents {
		if r.MemberID == memberID || r.RelateMemberID == memberID {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMemberRepo) CreateNotification(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notification.ID = uint(len(f.notifications) + 1)
	f.notifications = append(f.notifications, notification)
	return nil
}

func (f *fakeMemberRepo) ListNotifications(ctx context.Context, memberID int64, page, pageSize int) ([]*models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.ToMemberID == memberID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

type fakeIdentity struct {
	identities map[int64]*MemberIdentity
}

func (f *fakeIdentity) Resolve(ctx context.Context, memberID int64, platform models.BlockChainPlatform) (*MemberIdentity, error) {
	return f.identities[memberID], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

type fakeGasPricer struct {
	price *big.Int
}

func (f *fakeGasPricer) SuggestGasPrice(ctx context.Context, rpcURL string) (*big.Int, error) {
	return f.price, nil
}

type fakeGasEstimator struct {
	estimate *clients.GasEstimate
}

func (f *fakeGasEstimator) EstimateUserOperationGas(ctx context.Context, bundlerURL, chainName string, op *clients.UserOperation) (*clients.GasEstimate, error) {
	return f.estimate, nil
}
