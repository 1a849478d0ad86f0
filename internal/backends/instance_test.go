package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestSignature(t *testing.T) {
	ep := oauth2.Endpoint{AuthURL: "https://idp/auth", TokenURL: "https://idp/token"}
	base := InstanceConfig{
		ClientID: "cid", ClientSecret: "secret", Scopes: []string{"a", "b"},
		RedirectURL: "https://mk/cb", Enabled: true,
	}
	sig := Signature("oauth2:google", base, ep)
	assert.Len(t, sig, 64)

	t.Run("stable under scope order and enabled flag", func(t *testing.T) {
		c := base
		c.Scopes = []string{"b", "a"}
		c.Enabled = false
		assert.Equal(t, sig, Signature("oauth2:google", c, ep))
	})

	changes := map[string]func(c *InstanceConfig, ep *oauth2.Endpoint, id *string){
		"client id":     func(c *InstanceConfig, _ *oauth2.Endpoint, _ *string) { c.ClientID = "cid2" },
		"client secret": func(c *InstanceConfig, _ *oauth2.Endpoint, _ *string) { c.ClientSecret = "rotated" },
		"scopes":        func(c *InstanceConfig, _ *oauth2.Endpoint, _ *string) { c.Scopes = []string{"a"} },
		"redirect":      func(c *InstanceConfig, _ *oauth2.Endpoint, _ *string) { c.RedirectURL = "https://other/cb" },
		"tenant":        func(c *InstanceConfig, _ *oauth2.Endpoint, _ *string) { c.Tenant = "contoso" },
		"token url":     func(_ *InstanceConfig, e *oauth2.Endpoint, _ *string) { e.TokenURL = "https://idp2/token" },
		"backend":       func(_ *InstanceConfig, _ *oauth2.Endpoint, id *string) { *id = "oauth2:microsoft" },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			c := base
			c.Scopes = append([]string(nil), base.Scopes...)
			e := ep
			id := "oauth2:google"
			change(&c, &e, &id)
			assert.NotEqual(t, sig, Signature(id, c, e))
		})
	}
}

func TestInstance_ConfigIsCopy(t *testing.T) {
	inst := NewInstance("id", "oauth2:google", InstanceConfig{Scopes: []string{"a"}, Enabled: true}, oauth2.Endpoint{})
	c := inst.Config()
	c.Scopes[0] = "mutated"
	assert.Equal(t, "a", inst.Config().Scopes[0])
	assert.True(t, inst.IsEnabled())
	assert.Equal(t, "id", inst.ID())
}
