package llm

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

//Chain keeps completion providers in fallback priority order
type Chain struct {
	providers []Provider
}

//NewChain creates provider chain from config keys llm.chain (ordered list of section names)
func NewChain() (*Chain, error) {
	names := cmdapp.Config.GetStringSlice("llm.chain")
	if len(names) == 0 {
		return nil, errors.New("No llm.chain setting provided")
	}
	res := &Chain{}
	for _, name := range names {
		cl, err := NewClient(name)
		if err != nil {
			return nil, errors.Wrap(err, "Can't init llm provider "+name)
		}
		res.providers = append(res.providers, cl)
	}
	cmdapp.Log.Infof("Init llm chain of %d provider(s)", len(res.providers))
	return res, nil
}

//NewChainOf wraps provided implementations, first is primary
func NewChainOf(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

//Providers returns providers in fallback order
func (ch *Chain) Providers() []Provider {
	return ch.providers
}
