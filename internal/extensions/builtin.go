package extensions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalnet/ircore/internal/config"
	"github.com/dalnet/ircore/internal/extension"
)

// ErrUnknownExtension is returned by FromConfig for a name it cannot build.
var ErrUnknownExtension = errors.New("unknown extension")

// FromConfig builds the factories for the extensions cfg names, in the
// order it names them. Dependencies are checked when they are loaded.
func FromConfig(cfg *config.Config) ([]extension.Factory, error) {
	names := cfg.Extensions
	if len(names) == 0 {
		names = config.DefaultExtensions
	}

	factories := make([]extension.Factory, 0, len(names))
	for _, name := range names {
		f, err := builtin(cfg, strings.ToLower(name))
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}
	return factories, nil
}

func builtin(cfg *config.Config, name string) (extension.Factory, error) {
	switch name {
	case "basicrfc":
		return NewBasicRFC(Identity{
			ServerPass: cfg.ServerPass,
			Username:   cfg.Username,
			RealName:   cfg.IRCName,
		}), nil
	case "isupport":
		return NewISupport(), nil
	case "cap":
		return NewCapNegotiate(cfg.CapTimeout, cfg.Caps...), nil
	case "starttls":
		return NewStartTLS(), nil
	case "sasl":
		return NewSASL(SASLConfig{
			Mechanism: cfg.SASLMechanism,
			Username:  cfg.SASLUsername,
			Password:  cfg.SASLPassword,
		}), nil
	case "ctcp":
		return NewCTCP(cfg.CTCPVersion), nil
	case "altnick":
		return NewAltNick(cfg.Alternate), nil
	case "modehandler":
		return NewModeHandler(), nil
	case "lag":
		return NewLagCheck(cfg.LagInterval), nil
	case "autojoin":
		return NewAutoJoin(cfg.Channels), nil
	case "kickrejoin":
		return NewKickRejoin(cfg.RejoinDelay), nil
	case "basicapi":
		return NewBasicAPI(), nil
	case "services":
		return NewServicesLogin(ServicesConfig{
			Nick:      cfg.Nick,
			Password:  cfg.NickPass,
			OperNick:  cfg.OperNick,
			OperPass:  cfg.OperPass,
			UserModes: cfg.UserModes,
		}), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, name)
}
