package grid

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/browser/memory"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/dispatch"
	"github.com/ternarybob/gridcheck/internal/services/toast"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// profileMarkup mimics the profile page: a tab menu, one pane per grid with
// an add form and a table, and notifications appended to the body
const profileMarkup = `<html><body>
<div class="ui top attached tabular menu">
  <a class="item active" data-tab="first">Languages</a>
  <a class="item" data-tab="third">Education</a>
  <a class="item" data-tab="fourth">Certifications</a>
</div>
<div class="ui bottom attached tab segment" data-tab="third" hidden>
  <div class="ui teal button">Add New</div>
  <div class="form" hidden>
    <input type="text" placeholder="College/University Name" value="">
    <select name="country"><option>Country of College/University</option><option>Australia</option><option>India</option><option>New Zealand</option></select>
    <select name="title"><option>Title</option><option>B.Sc</option><option>M.Sc</option><option>PhD</option></select>
    <input type="text" placeholder="Degree" value="">
    <select name="yearOfGraduation"><option>Year of graduation</option><option>2018</option><option>2019</option><option>2020</option></select>
    <input type="button" class="ui teal button" value="Add">
    <input type="button" class="ui teal button" value="Update">
    <input type="button" class="ui button" value="Cancel">
  </div>
  <table class="ui fixed table"><thead><tr><th>Country</th><th>University</th><th>Title</th><th>Degree</th><th>Graduation Year</th><th></th></tr></thead><tbody></tbody></table>
</div>
<div class="ui bottom attached tab segment" data-tab="fourth" hidden>
  <div class="ui teal button">Add New</div>
  <div class="form" hidden>
    <input type="text" placeholder="Certificate or Award" value="">
    <input type="text" class="received-from capitalize" name="certificationFrom" value="">
    <select name="certificationYear"><option>Year</option><option>2021</option><option>2022</option></select>
    <input type="button" class="ui teal button" value="Add">
    <input type="button" class="ui teal button" value="Update">
    <input type="button" class="ui button" value="Cancel">
  </div>
  <table class="ui fixed table"><thead><tr><th>Certificate</th><th>From</th><th>Year</th><th></th></tr></thead><tbody></tbody></table>
</div>
</body></html>`

const (
	eduPane  = "div[data-tab='third']"
	certPane = "div[data-tab='fourth']"
)

// profileApp scripts the profile page behaviour on a memory page
type profileApp struct {
	page    *memory.Page
	editing int
	added   int
}

func newProfileApp() *profileApp {
	app := &profileApp{page: memory.MustNew(profileMarkup), editing: -1}
	p := app.page

	p.Handle("a.item", func(e *memory.Event) {
		tab, _ := e.Target.Attr("data-tab")
		e.Doc.Find("div.tab").SetAttr("hidden", "hidden")
		e.Doc.Find(fmt.Sprintf("div.tab[data-tab='%s']", tab)).RemoveAttr("hidden")
	})
	p.Handle("a.ns-close", func(e *memory.Event) {
		e.Target.Closest("div.ns-box").Remove()
	})
	for _, pane := range []string{eduPane, certPane} {
		pane := pane
		p.Handle(pane+" div.ui.teal.button", func(e *memory.Event) {
			e.Doc.Find(pane + " div.form").RemoveAttr("hidden")
			app.editing = -1
		})
		p.Handle(pane+" input[value='Cancel']", func(e *memory.Event) {
			e.Doc.Find(pane+" div.form").SetAttr("hidden", "hidden")
		})
		p.Handle(pane+" i.remove.icon", func(e *memory.Event) {
			e.Target.Closest("tr").Remove()
			if pane == eduPane {
				showToast(e.Doc, "success", "Education entry successfully removed")
			} else {
				showToast(e.Doc, "success", "Certification has been deleted from your certification")
			}
		})
		p.Handle(pane+" i.write.icon", func(e *memory.Event) {
			row := e.Target.Closest("tr")
			app.editing = row.Index()
			e.Doc.Find(pane + " div.form").RemoveAttr("hidden")
		})
		p.Handle(pane+" input[value='Add']", func(e *memory.Event) { app.submit(e, pane, -1) })
		p.Handle(pane+" input[value='Update']", func(e *memory.Event) { app.submit(e, pane, app.editing) })
	}
	return app
}

// interceptWithToasts makes visible notifications cover tabs and row icons
func (app *profileApp) interceptWithToasts() {
	cover := memory.CoveredBy("div.ns-box", "a.item")
	coverIcons := memory.CoveredBy("div.ns-box", "i.remove.icon")
	app.page.Intercept(cover)
	app.page.Intercept(coverIcons)
}

func (app *profileApp) values(e *memory.Event, pane string) []string {
	if pane == eduPane {
		return []string{
			e.Selected(pane + " select[name='country']"),
			e.Value(pane + " input[placeholder='College/University Name']"),
			e.Selected(pane + " select[name='title']"),
			e.Value(pane + " input[placeholder='Degree']"),
			e.Selected(pane + " select[name='yearOfGraduation']"),
		}
	}
	return []string{
		e.Value(pane + " input[placeholder='Certificate or Award']"),
		e.Value(pane + " input[name='certificationFrom']"),
		e.Selected(pane + " select[name='certificationYear']"),
	}
}

func (app *profileApp) submit(e *memory.Event, pane string, editing int) {
	values := app.values(e, pane)
	for _, v := range values {
		if v == "" || strings.HasPrefix(v, "Country of") || v == "Title" || v == "Year" || v == "Year of graduation" {
			e.OpenDialog("Please enter all the fields")
			return
		}
	}

	rows := e.Doc.Find(pane + " table tbody tr")
	duplicate := false
	rows.Each(func(i int, row *goquery.Selection) {
		if i == editing {
			return
		}
		same := true
		row.Find("td").Each(func(j int, td *goquery.Selection) {
			if j < len(values) && strings.TrimSpace(td.Text()) != values[j] {
				same = false
			}
		})
		duplicate = duplicate || same
	})
	if duplicate {
		if pane == eduPane {
			showToast(e.Doc, "error", "This information is already exist.")
		} else {
			showToast(e.Doc, "error", "This information is already exist")
		}
		return
	}

	markup := rowMarkup(values)
	if editing >= 0 {
		rows.Eq(editing).ReplaceWithHtml(markup)
		showToast(e.Doc, "success", values[0]+" has been updated to your "+paneName(pane))
	} else {
		e.Doc.Find(pane + " table tbody").AppendHtml(markup)
		showToast(e.Doc, "success", values[0]+" has been added to your "+paneName(pane))
		app.added++
	}
	e.Doc.Find(pane+" div.form").SetAttr("hidden", "hidden")
}

func paneName(pane string) string {
	if pane == eduPane {
		return "education"
	}
	return "certification"
}

func rowMarkup(values []string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, v := range values {
		b.WriteString("<td>" + html.EscapeString(v) + "</td>")
	}
	b.WriteString(`<td class="right aligned"><span class="button"><i class="outline write icon"></i></span><span class="button"><i class="remove icon"></i></span></td></tr>`)
	return b.String()
}

func showToast(doc *goquery.Document, kind, text string) {
	doc.Find("div.ns-box").Remove()
	doc.Find("body").AppendHtml(fmt.Sprintf(`<div class="ns-box ns-type-%s"><div class="ns-box-inner">%s</div><a class="ns-close"></a></div>`, kind, html.EscapeString(text)))
}

// seed inserts rows directly, bypassing the form
func (app *profileApp) seed(pane string, rows ...[]string) {
	app.page.Mutate(func(doc *goquery.Document) {
		for _, values := range rows {
			doc.Find(pane + " table tbody").AppendHtml(rowMarkup(values))
		}
	})
}

func (app *profileApp) clearToasts() {
	app.page.Mutate(func(doc *goquery.Document) { doc.Find("div.ns-box").Remove() })
}

var testOptions = Options{
	ActionTimeout: 300 * time.Millisecond,
	SettleTimeout: 100 * time.Millisecond,
	ShrinkTimeout: 200 * time.Millisecond,
	MaxSkips:      3,
}

type fixture struct {
	app           *profileApp
	toasts        *toast.Detector
	education     *Grid[models.EducationRecord]
	certification *Grid[models.CertificationRecord]
}

func newFixture() *fixture {
	app := newProfileApp()
	logger := arbor.NewLogger()
	w := waiter.New(logger, 2*time.Millisecond)
	toasts := toast.NewDetector(app.page, w, toast.DefaultLocators(), 300*time.Millisecond, logger)
	dispatcher := dispatch.NewDispatcher(app.page, w, toasts, testOptions.ActionTimeout, logger)
	return &fixture{
		app:           app,
		toasts:        toasts,
		education:     New(EducationSchema(), app.page, w, dispatcher, toasts, testOptions, logger),
		certification: New(CertificationSchema(), app.page, w, dispatcher, toasts, testOptions, logger),
	}
}
