package backends

import (
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/cryptox"
	"github.com/dmitrijs2005/mailkeeper/internal/repositories/instances"
)

// FromConfig builds the registry from cfg.Providers.
func FromConfig(cfg *config.Config, repo instances.Repository, codec *cryptox.Codec) (*Registry, error) {
	bs := make([]Backend, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		b, err := NewOAuth2Backend(p, cfg.RedirectURL(), repo, codec)
		if err != nil {
			return nil, err
		}
		bs = append(bs, b)
	}
	return NewRegistry(bs...)
}
