package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	id        string
	mu        sync.Mutex
	instances map[string]*backends.Instance
	refresh   func(ctx context.Context, refreshToken, ref string) (*credentials.TokenInfo, error)
	refCalls  []string
}

func newFakeProvider(id string) *fakeProvider {
	return &fakeProvider{id: id, instances: map[string]*backends.Instance{}}
}

func (p *fakeProvider) ID() string            { return p.id }
func (p *fakeProvider) Name() string          { return "Fake " + p.id }
func (p *fakeProvider) Scheme() authbk.Scheme { return authbk.OAuth2 }

func (p *fakeProvider) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: "https://auth.example/authorize", TokenURL: "https://auth.example/token"}
}

func (p *fakeProvider) AuthorizeURL(inst *backends.Instance, state string) string {
	return p.endpoint().AuthURL + "?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, *backends.Instance, string) (*credentials.TokenInfo, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) ResourceOwner(context.Context, *backends.Instance, string) (string, error) {
	return "", nil
}

func (p *fakeProvider) RefreshToken(ctx context.Context, refreshToken, ref string) (*credentials.TokenInfo, error) {
	p.mu.Lock()
	p.refCalls = append(p.refCalls, ref)
	p.mu.Unlock()
	if p.refresh == nil {
		return nil, errors.New("refresh not configured")
	}
	return p.refresh(ctx, refreshToken, ref)
}

func (p *fakeProvider) PluginInstance(_ context.Context, authID string) (*backends.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances[authID], nil
}

func (p *fakeProvider) put(authID string, cfg backends.InstanceConfig) *backends.Instance {
	inst := backends.NewInstance(authID, p.id, cfg, p.endpoint())
	p.mu.Lock()
	p.instances[authID] = inst
	p.mu.Unlock()
	return inst
}

func (p *fakeProvider) AddPluginInstance(_ context.Context, cfg backends.InstanceConfig) (*backends.Instance, error) {
	return p.put("inst-"+strings.ToLower(cfg.ClientID), cfg), nil
}

func (p *fakeProvider) UpdatePluginInstance(_ context.Context, authID string, cfg backends.InstanceConfig) (*backends.Instance, error) {
	return p.put(authID, cfg), nil
}

func (p *fakeProvider) DeletePluginInstance(_ context.Context, authID string) error {
	p.mu.Lock()
	delete(p.instances, authID)
	p.mu.Unlock()
	return nil
}

// fakeActivity mirrors the account service: an error bumps the counter.
type fakeActivity struct {
	messages []string
}

func (f *fakeActivity) LogActivity(_ context.Context, a *models.Account, errMsg *string) error {
	if errMsg == nil {
		a.RecordSuccess(time.Now())
		return nil
	}
	f.messages = append(f.messages, *errMsg)
	a.RecordError(*errMsg, time.Now())
	return nil
}

type fakeAccounts struct {
	saved int
	err   error
}

func (f *fakeAccounts) SaveAccount(context.Context, *models.Account) error {
	if f.err != nil {
		return f.err
	}
	f.saved++
	return nil
}
