package gui

import (
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"

	"github.com/localrivet/githubsentinel/internal/reportstore"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>GitHub Sentinel</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
section { border: 1px solid #ddd; border-radius: 6px; padding: 1rem; margin-bottom: 1.5rem; }
pre { white-space: pre-wrap; background: #f6f8fa; padding: 1rem; }
.muted { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>GitHub Sentinel</h1>

<section id="report">
<h2>Generate report</h2>
<form id="report-form">
<label>Subscription
<select name="repository">
{{#subscriptions}}
<option value="{{.}}">{{.}}</option>
{{/subscriptions}}
</select>
</label>
<label>Period (days)
<select name="days">
{{#days}}
<option value="{{value}}"{{#selected}} selected{{/selected}}>{{value}}</option>
{{/days}}
</select>
</label>
<label><input type="checkbox" name="dry_run"> Dry run</label>
<button type="submit">Generate report</button>
<button type="button" id="hn">Hacker News report</button>
</form>
<pre id="output"></pre>
<a id="download" hidden>Download report</a>
</section>

<section id="subscriptions">
<h2>Subscriptions</h2>
<ul>
{{#subscriptions}}
<li>{{.}}</li>
{{/subscriptions}}
{{^subscriptions}}
<li class="muted">No subscriptions yet</li>
{{/subscriptions}}
</ul>
<form id="sub-form">
<input name="repository" placeholder="owner/name">
<button type="submit" name="action" value="add">Add</button>
<button type="submit" name="action" value="remove">Remove</button>
</form>
</section>

<section id="archive">
<h2>Recent reports</h2>
<ul>
{{#reports}}
<li><a href="/api/reports/{{id}}">{{repository}}</a> <span class="muted">{{kind}}, {{age}}</span></li>
{{/reports}}
{{^reports}}
<li class="muted">No reports yet</li>
{{/reports}}
</ul>
</section>

<p class="muted">Provider: {{provider}} ({{model}})</p>

<script>
const out = document.getElementById('output');
const dl = document.getElementById('download');
async function post(url, body, method) {
  const resp = await fetch(url, {method: method || 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)});
  return resp.json();
}
function show(data) {
  if (data.status === 'error') { out.textContent = data.message + ': ' + (data.details ? data.details.error : ''); dl.hidden = true; return; }
  out.textContent = data.report;
  if (data.id) { dl.href = '/api/reports/' + data.id; dl.hidden = false; } else { dl.hidden = true; }
}
document.getElementById('report-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  out.textContent = 'Generating...';
  show(await post('/api/report', {repository: f.get('repository'), days: Number(f.get('days')), dry_run: f.get('dry_run') === 'on'}));
});
document.getElementById('hn').addEventListener('click', async () => {
  const f = new FormData(document.getElementById('report-form'));
  out.textContent = 'Generating...';
  show(await post('/api/hackernews/report', {dry_run: f.get('dry_run') === 'on'}));
});
document.getElementById('sub-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const repo = new FormData(e.target).get('repository');
  await post('/api/subscriptions', {repository: repo}, e.submitter.value === 'remove' ? 'DELETE' : 'POST');
  location.reload();
});
</script>
</body>
</html>
`

// maxGUIDays is the largest period offered by the form.
const maxGUIDays = 7

// pageData is the view model for the index page.
type pageData struct {
	Subscriptions []string
	Reports       []reportstore.Report
	Provider      string
	Model         string
	DefaultDays   int
	Now           time.Time
}

func renderPage(d pageData) (string, error) {
	days := make([]map[string]interface{}, 0, maxGUIDays)
	for i := 1; i <= maxGUIDays; i++ {
		days = append(days, map[string]interface{}{"value": i, "selected": i == d.DefaultDays})
	}

	reports := make([]map[string]interface{}, 0, len(d.Reports))
	for _, r := range d.Reports {
		reports = append(reports, map[string]interface{}{
			"id":         r.ID,
			"repository": r.Repository,
			"kind":       r.Kind,
			"age":        humanize.RelTime(r.CreatedAt, d.Now, "ago", "from now"),
		})
	}

	return mustache.Render(pageTemplate, map[string]interface{}{
		"subscriptions": d.Subscriptions,
		"days":          days,
		"reports":       reports,
		"provider":      d.Provider,
		"model":         d.Model,
	})
}
