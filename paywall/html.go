package paywall

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// pageConfig is exposed to the paywall page as window.x402.
type pageConfig struct {
	Amount               float64                    `json:"amount"`
	PaymentRequirements  []x402.PaymentRequirements `json:"paymentRequirements"`
	Testnet              bool                       `json:"testnet"`
	CurrentURL           string                     `json:"currentUrl"`
	CDPClientKey         string                     `json:"cdpClientKey,omitempty"`
	AppName              string                     `json:"appName,omitempty"`
	AppLogo              string                     `json:"appLogo,omitempty"`
	SessionTokenEndpoint string                     `json:"sessionTokenEndpoint,omitempty"`
}

type pageData struct {
	Title  string
	Price  string
	Config pageConfig
}

var paywallTemplate = template.Must(template.New("paywall").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Payment Required - {{.Title}}</title>
<script>window.x402 = {{.Config}};</script>
</head>
<body>
<main>
{{if .Config.AppLogo}}<img src="{{.Config.AppLogo}}" alt="{{.Title}}" height="48">{{end}}
<h1>Payment Required</h1>
<p>Access to this resource costs <strong>{{.Price}} USDC</strong>{{if .Config.Testnet}} on a test network{{end}}.</p>
<div id="x402-paywall"></div>
</main>
</body>
</html>
`))

func (p *Paywall) sendPaywallPage(w http.ResponseWriter, r *http.Request, route *x402.RouteConfig, requirements *x402.PaymentRequirements, opts Options) {
	if route.Config != nil && route.Config.CustomPaywallHTML != "" {
		writeHTML(w, []byte(route.Config.CustomPaywallHTML))
		return
	}

	page, err := renderPaywall(requirements, opts)
	if err != nil {
		p.logger.Error("failed to render paywall", zap.Error(err))
		sendPaymentRequired(w, errHeaderRequired, []x402.PaymentRequirements{*requirements}, "")
		return
	}
	writeHTML(w, page)
}

func renderPaywall(requirements *x402.PaymentRequirements, opts Options) ([]byte, error) {
	atomic, err := decimal.NewFromString(requirements.MaxAmountRequired)
	if err != nil {
		return nil, err
	}
	price := atomic.Shift(-x402.USDCDecimals)

	info, err := x402.LookupNetwork(requirements.Network)
	if err != nil {
		return nil, err
	}

	title := opts.AppName
	if title == "" {
		title = requirements.Resource
	}

	data := pageData{
		Title: title,
		Price: displayPrice(price),
		Config: pageConfig{
			Amount:               price.InexactFloat64(),
			PaymentRequirements:  []x402.PaymentRequirements{*requirements},
			Testnet:              info.Testnet,
			CurrentURL:           requirements.Resource,
			CDPClientKey:         opts.CDPClientKey,
			AppName:              opts.AppName,
			AppLogo:              opts.AppLogo,
			SessionTokenEndpoint: opts.SessionTokenEndpoint,
		},
	}

	var buf bytes.Buffer
	if err := paywallTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// displayPrice shows at least two decimals and never rounds a sub-cent
// price away.
func displayPrice(price decimal.Decimal) string {
	if price.Equal(price.Round(2)) {
		return price.StringFixed(2)
	}
	return price.String()
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusPaymentRequired)
	w.Write(body)
}
