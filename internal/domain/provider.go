package domain

// Provider identifies the messaging platform a bot is connected to.
type Provider string

const (
	ProviderSlack    Provider = "slack"
	ProviderKik      Provider = "kik"
	ProviderFacebook Provider = "facebook"
	ProviderTelegram Provider = "telegram"
)

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderSlack, ProviderKik, ProviderFacebook, ProviderTelegram:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}
