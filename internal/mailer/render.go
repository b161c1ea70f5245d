package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/models"
)

const Subject = "Your Task Reminders - Action Required"

type palette struct {
	Border     string
	Background string
}

var priorityPalette = map[models.Priority]palette{
	models.PriorityHigh:   {Border: "#dc3545", Background: "#fff3f3"},
	models.PriorityMedium: {Border: "#ffc107", Background: "#fff8e6"},
	models.PriorityLow:    {Border: "#28a745", Background: "#f3fff3"},
}

type taskView struct {
	Title         string
	Due           string
	PriorityLabel string
	Border        string
	Background    string
}

type reminderView struct {
	Name  string
	Tasks []taskView
}

var htmlBody = htmltemplate.Must(htmltemplate.New("reminder.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #4361ee; padding: 20px; border-radius: 10px 10px 0 0; text-align: center;">
    <h1 style="color: white; margin: 0; font-size: 24px;">Task Reminder</h1>
  </div>
  <div style="background-color: white; padding: 30px; border-radius: 0 0 10px 10px;">
    <p style="color: #333; font-size: 16px;">Hello{{if .Name}} {{.Name}}{{end}},</p>
    <p style="color: #333; font-size: 16px;">You have the following tasks that require your attention:</p>
    <ul style="list-style-type: none; padding: 0; margin: 20px 0;">
{{- range .Tasks}}
      <li style="margin-bottom: 15px; padding: 15px; background-color: {{.Background}}; border-radius: 8px; border-left: 4px solid {{.Border}};">
        <strong style="font-size: 16px; color: #333;">{{.Title}}</strong><br>
        <div style="margin-top: 8px; color: #666; font-size: 14px;">
          <span>Due: {{.Due}}</span><br>
          <span>Priority: {{.PriorityLabel}}</span>
        </div>
      </li>
{{- end}}
    </ul>
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 8px; margin-top: 20px;">
      <p style="color: #666; margin: 0; font-size: 14px;">Pro Tip: Complete high-priority tasks first to stay on track!</p>
    </div>
    <p style="color: #666; font-size: 12px; text-align: center; margin-top: 30px;">
      This is an automated reminder from your Todo App.<br>Please do not reply to this email.
    </p>
  </div>
</div>
`))

var textBody = texttemplate.Must(texttemplate.New("reminder.txt").Parse(`Hello{{if .Name}} {{.Name}}{{end}},

You have the following tasks that require your attention:
{{range .Tasks}}
- [{{.PriorityLabel}}] {{.Title}} (due {{.Due}})
{{- end}}

Pro Tip: Complete high-priority tasks first to stay on track!

This is an automated reminder from your Todo App.
`))

// Render builds the HTML and plain-text bodies for one recipient. Due dates
// are shown in loc.
func Render(name string, tasks []models.Task, loc *time.Location) (string, string, error) {
	if loc == nil {
		loc = time.Local
	}

	view := reminderView{Name: name, Tasks: make([]taskView, len(tasks))}
	for i, t := range tasks {
		p, ok := priorityPalette[t.Priority]
		if !ok {
			p = priorityPalette[models.PriorityMedium]
		}
		view.Tasks[i] = taskView{
			Title:         t.Title,
			Due:           t.DueDate.In(loc).Format("Monday, January 2, 2006"),
			PriorityLabel: PriorityLabel(t.Priority),
			Border:        p.Border,
			Background:    p.Background,
		}
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, view); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := textBody.Execute(&text, view); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return html.String(), text.String(), nil
}

// PriorityLabel capitalises a priority for display.
func PriorityLabel(p models.Priority) string {
	if !p.Valid() {
		p = models.PriorityMedium
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}
