package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/mailkeeper/internal/authbk"
	"github.com/dmitrijs2005/mailkeeper/internal/backends"
	"github.com/dmitrijs2005/mailkeeper/internal/credentials"
	"github.com/dmitrijs2005/mailkeeper/internal/models"
	"github.com/dmitrijs2005/mailkeeper/internal/transport"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	id        string
	mu        sync.Mutex
	seq       int
	instances map[string]*backends.Instance

	exchange func(code string) (*credentials.TokenInfo, error)
	owner    string
	refresh  func(refreshToken string) (*credentials.TokenInfo, error)
}

func newFakeProvider(id string) *fakeProvider {
	return &fakeProvider{id: id, instances: map[string]*backends.Instance{}}
}

func (p *fakeProvider) ID() string            { return p.id }
func (p *fakeProvider) Name() string          { return p.id }
func (p *fakeProvider) Scheme() authbk.Scheme { return authbk.OAuth2 }

func (p *fakeProvider) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: "https://auth.example/authorize", TokenURL: "https://auth.example/token"}
}

func (p *fakeProvider) AuthorizeURL(_ *backends.Instance, state string) string {
	return p.endpoint().AuthURL + "?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, _ *backends.Instance, code string) (*credentials.TokenInfo, error) {
	if p.exchange == nil {
		return nil, errors.New("exchange not configured")
	}
	return p.exchange(code)
}

func (p *fakeProvider) ResourceOwner(context.Context, *backends.Instance, string) (string, error) {
	return p.owner, nil
}

func (p *fakeProvider) RefreshToken(_ context.Context, refreshToken, _ string) (*credentials.TokenInfo, error) {
	if p.refresh == nil {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}
	return p.refresh(refreshToken)
}

func (p *fakeProvider) PluginInstance(_ context.Context, authID string) (*backends.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances[authID], nil
}

func (p *fakeProvider) AddPluginInstance(_ context.Context, cfg backends.InstanceConfig) (*backends.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	inst := backends.NewInstance(fmt.Sprintf("inst-%d", p.seq), p.id, cfg, p.endpoint())
	p.instances[inst.ID()] = inst
	return inst, nil
}

func (p *fakeProvider) UpdatePluginInstance(_ context.Context, authID string, cfg backends.InstanceConfig) (*backends.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst := backends.NewInstance(authID, p.id, cfg, p.endpoint())
	p.instances[authID] = inst
	return inst, nil
}

func (p *fakeProvider) DeletePluginInstance(_ context.Context, authID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.instances, authID)
	return nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

type fakeMailbox struct {
	d *fakeDialer
}

func (m *fakeMailbox) HasFolder(_ context.Context, name string) (bool, error) {
	return m.d.folders[name], nil
}

func (m *fakeMailbox) CreateFolder(_ context.Context, name string) error {
	if m.d.createErr != nil {
		return m.d.createErr
	}
	m.d.folders[name] = true
	m.d.created = append(m.d.created, name)
	return nil
}

func (m *fakeMailbox) Close() error {
	m.d.closed++
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fakeDialer accepts any credential unless dialErr is set.
type fakeDialer struct {
	folders   map[string]bool
	created   []string
	createErr error
	dialErr   error
	closed    int
	lastCred  credentials.Credential
}

func newFakeDialer(folders ...string) *fakeDialer {
	d := &fakeDialer{folders: map[string]bool{}}
	for _, f := range folders {
		d.folders[f] = true
	}
	return d
}

func (d *fakeDialer) DialMailbox(_ context.Context, _ *models.Account, cred credentials.Credential) (transport.Mailbox, error) {
	d.lastCred = cred
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeMailbox{d: d}, nil
}

func (d *fakeDialer) DialSMTP(_ context.Context, _ *models.Account, cred credentials.Credential) (io.Closer, error) {
	d.lastCred = cred
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return nopCloser{}, nil
}
