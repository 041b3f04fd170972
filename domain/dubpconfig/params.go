package dubpconfig

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CurrencyParameters defines a currency by the protocol constants that
// drive block application and fork resolution
type CurrencyParameters struct {
	// Name is a human-readable identifier for the currency
	Name string `yaml:"name"`

	// ForkWindowSize is the number of main branch blocks the fork tree
	// keeps. Forks rooted deeper than that can no longer be resolved.
	ForkWindowSize uint32 `yaml:"forkWindowSize"`

	// AdvanceBlocks is how many blocks a competing branch must be ahead
	// of the current tip before it is considered for a refork
	AdvanceBlocks uint32 `yaml:"advanceBlocks"`

	// AdvanceTime is how many seconds of median time a competing branch
	// must be ahead of the current tip before it is considered for a refork
	AdvanceTime uint64 `yaml:"advanceTime"`

	// SigPeriod is the minimum delay in seconds between two certifications
	// issued by the same identity
	SigPeriod uint64 `yaml:"sigPeriod"`

	// SigValidity is the lifetime of a certification in seconds
	SigValidity uint64 `yaml:"sigValidity"`

	// SigStock is the maximum number of active certifications an identity
	// can issue
	SigStock int `yaml:"sigStock"`

	// MsPeriod is the minimum delay in seconds between two memberships
	// of the same identity
	MsPeriod uint64 `yaml:"msPeriod"`

	// MsValidity is the lifetime of a membership in seconds
	MsValidity uint64 `yaml:"msValidity"`

	// DustThreshold is the balance, in base-0 units, under which all the
	// remaining sources of a condition are destroyed
	DustThreshold uint64 `yaml:"dustThreshold"`

	// DividendPeriod is the delay in seconds between two universal dividends
	DividendPeriod uint64 `yaml:"dividendPeriod"`
}

// G1Params defines the parameters of the Ğ1 currency
var G1Params = CurrencyParameters{
	Name:           "g1",
	ForkWindowSize: 100,
	AdvanceBlocks:  3,
	AdvanceTime:    900,
	SigPeriod:      432000,
	SigValidity:    63115200,
	SigStock:       100,
	MsPeriod:       5259600,
	MsValidity:     31557600,
	DustThreshold:  100,
	DividendPeriod: 86400,
}

// G1TestParams defines the parameters of the Ğ1-test currency
var G1TestParams = CurrencyParameters{
	Name:           "g1-test",
	ForkWindowSize: 100,
	AdvanceBlocks:  3,
	AdvanceTime:    900,
	SigPeriod:      86400,
	SigValidity:    63115200,
	SigStock:       100,
	MsPeriod:       1296000,
	MsValidity:     31557600,
	DustThreshold:  100,
	DividendPeriod: 86400,
}

// ErrInvalidParameters indicates a parameters file that defines an unusable
// currency
var ErrInvalidParameters = errors.New("invalid currency parameters")

// Validate checks that params define a usable currency
func (params *CurrencyParameters) Validate() error {
	if params.ForkWindowSize == 0 {
		return errors.Wrap(ErrInvalidParameters, "forkWindowSize must be positive")
	}
	if params.SigStock <= 0 {
		return errors.Wrap(ErrInvalidParameters, "sigStock must be positive")
	}
	if params.SigValidity == 0 || params.MsValidity == 0 {
		return errors.Wrap(ErrInvalidParameters, "sigValidity and msValidity must be positive")
	}
	return nil
}

// ByName returns the built-in parameters of the named currency
func ByName(name string) (*CurrencyParameters, error) {
	switch name {
	case G1Params.Name:
		params := G1Params
		return &params, nil
	case G1TestParams.Name:
		params := G1TestParams
		return &params, nil
	}
	return nil, errors.Errorf("unknown currency %s", name)
}

// Load reads parameters from a YAML file. Fields missing from the file
// keep the value they have in base.
func Load(path string, base *CurrencyParameters) (*CurrencyParameters, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read currency parameters file %s", path)
	}
	return Parse(content, base)
}

// Parse decodes YAML parameters on top of base
func Parse(content []byte, base *CurrencyParameters) (*CurrencyParameters, error) {
	params := *base
	err := yaml.Unmarshal(content, &params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode currency parameters")
	}
	err = params.Validate()
	if err != nil {
		return nil, err
	}
	return &params, nil
}
