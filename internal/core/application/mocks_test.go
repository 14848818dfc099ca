package application

import (
	"context"
	"sync"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// fakeLedger serves a programmable set of coins. The result of a
// GetUnspentCoins call is fixed on entry. When gate is set, the call then
// signals on started and blocks until gate yields.
type fakeLedger struct {
	lock *sync.Mutex

	info  domain.PublicKeyInfo
	coins []domain.HydratedCoin
	// errs are returned, in order, by the next GetUnspentCoins calls.
	errs []error

	started chan struct{}
	gate    chan struct{}

	credential   string
	keyCalls     int
	unspentCalls int
	spends       []ports.SpendRequest
	offers       []ports.OfferRequest
	// addresses are the accounts coins were requested for, in order.
	addresses []string
}

func newFakeLedger(info domain.PublicKeyInfo, coins ...domain.HydratedCoin) *fakeLedger {
	return &fakeLedger{
		lock:  &sync.Mutex{},
		info:  info,
		coins: coins,
	}
}

func (l *fakeLedger) setCoins(coins ...domain.HydratedCoin) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.coins = coins
}

func (l *fakeLedger) failNext(errs ...error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.errs = append(l.errs, errs...)
}

func (l *fakeLedger) calls() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.unspentCalls
}

// setAccount changes the account served, along with its coins.
func (l *fakeLedger) setAccount(info domain.PublicKeyInfo, coins ...domain.HydratedCoin) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.info = info
	l.coins = coins
}

func (l *fakeLedger) SetCredential(credential string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.credential = credential
}

func (l *fakeLedger) GetPublicKeyInfo(ctx context.Context) (*domain.PublicKeyInfo, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.keyCalls++
	info := l.info
	return &info, nil
}

func (l *fakeLedger) GetUnspentCoins(ctx context.Context, address string) ([]domain.HydratedCoin, error) {
	l.lock.Lock()
	l.unspentCalls++
	l.addresses = append(l.addresses, address)
	started, gate := l.started, l.gate
	coins := append([]domain.HydratedCoin{}, l.coins...)
	var err error
	if len(l.errs) > 0 {
		err, l.errs = l.errs[0], l.errs[1:]
	}
	l.lock.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	if err != nil {
		return nil, err
	}
	return coins, nil
}

func (l *fakeLedger) SubmitSpend(ctx context.Context, req ports.SpendRequest) (string, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.spends = append(l.spends, req)
	return "0xtx", nil
}

func (l *fakeLedger) SubmitOffer(ctx context.Context, req ports.OfferRequest) (string, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.offers = append(l.offers, req)
	return "offer1" + req.OfferedCoin.ID().String()[2:10], nil
}

type mockedMarketplace struct {
	mock.Mock
}

func (m *mockedMarketplace) PostOffer(
	ctx context.Context, offerBlob string,
) (*domain.MarketplaceListing, error) {
	args := m.Called(ctx, offerBlob)

	var res *domain.MarketplaceListing
	if a := args.Get(0); a != nil {
		res = a.(*domain.MarketplaceListing)
	}
	return res, args.Error(1)
}

type mockedFetcher struct {
	mock.Mock
}

func (m *mockedFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	args := m.Called(interval, immediate)
	return args.Error(0)
}
