package httpapi

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed inspect.html
var templatesFS embed.FS

var inspectTemplate = template.Must(template.ParseFS(templatesFS, "inspect.html"))

type InspectRow struct {
	Nickname string
	State    string
}

type PageData struct {
	GeneratedAt string
	Connections int
	Items       []InspectRow
}

func newPageData(snapshot domain.Snapshot, now time.Time) PageData {
	data := PageData{
		GeneratedAt: now.Format("15:04:05"),
		Connections: snapshot.Connections,
	}
	for _, name := range snapshot.Nicknames {
		data.Items = append(data.Items, InspectRow{Nickname: name.String(), State: "bound"})
	}
	for _, name := range snapshot.Pending {
		data.Items = append(data.Items, InspectRow{Nickname: name.String(), State: "grace"})
	}
	return data
}

// inspectHandler renders the sessions snapshot as a page for humans.
func inspectHandler(log *slog.Logger, sessions contract.ISnapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := newPageData(sessions.Snapshot(), time.Now())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := inspectTemplate.Execute(w, data); err != nil {
			log.Debug("Failed to render inspect page", "error", err)
		}
	}
}
