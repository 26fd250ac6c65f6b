package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

type DashboardProps struct {
	Title         string
	PromoSupplier string
	PriceSupplier string
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="{{.Script}}"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2933; }
header { padding: 1.5rem 2rem; background: #12355b; color: #fff; }
main { display: grid; gap: 1.5rem; padding: 2rem; }
section { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.modern-table { width: 100%; border-collapse: collapse; font-size: .9rem; }
.modern-table th, .modern-table td { padding: .4rem .6rem; border-bottom: 1px solid #e4e7eb; text-align: left; }
.category-badge { padding: .1rem .5rem; border-radius: 4px; background: #e0e8f9; }
.error { color: #b42318; }
</style>
</head>
<body data-on-load="@get('/sse/refresh-all')">
<header>
<h1>{{.Title}}</h1>
<p>Data quality, promotion performance and competitive pricing from point-of-sale data</p>
</header>
<main>
<section>
<h2>Data Quality Health</h2>
<div id="quality-content">Loading store health scores...</div>
</section>
<section>
<h2>Promotion Performance: {{.PromoSupplier}}</h2>
<div id="promotions-content">Loading promotion KPIs...</div>
</section>
<section>
<h2>Price Index: {{.PriceSupplier}}</h2>
<div id="pricing-content">Loading price positioning...</div>
</section>
</main>
</body>
</html>
`))

// Dashboard renders the single-page dashboard. Panels are filled over SSE.
func Dashboard(props DashboardProps) templ.Component {
	if props.Title == "" {
		props.Title = "Retail Insights Dashboard"
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return dashboardTemplate.Execute(w, struct {
			DashboardProps
			Script string
		}{props, datastarScript})
	})
}
