package web

import (
	"encoding/base64"
	"time"

	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/web/templates"
)

func indexParams(s *Server) templates.IndexParams {
	p := templates.IndexParams{
		Organization: s.cfg.Deprovisioning.Organization,
		Domain:       s.cfg.Deprovisioning.Domain,
		MaxFileMB:    s.cfg.Upload.MaxFileSize >> 20,
	}
	for _, kind := range core.SourceKinds {
		p.Sources = append(p.Sources, templates.SourceInput{Field: string(kind), Label: kind.Label()})
	}
	return p
}

func resultParams(res core.Result) templates.ResultParams {
	p := templates.ResultParams{
		Title:     res.Checklist.Title,
		Checklist: res.Checklist.String(),
		Notices:   res.Notices,
	}
	p.Records = append(p.Records, recordView("Record utente", res.IdentityExport))
	p.Downloads = append(p.Downloads, download(res.IdentityExport))
	if res.DeviceExport != nil {
		p.Records = append(p.Records, recordView("Record device", *res.DeviceExport))
		p.Downloads = append(p.Downloads, download(*res.DeviceExport))
	}
	return p
}

func recordView(caption string, e core.Export) templates.RecordView {
	return templates.RecordView{
		Caption: caption + " – " + e.FileName,
		Header:  e.Record.Header(),
		Values:  e.Record.Values(),
	}
}

func download(e core.Export) templates.Download {
	return templates.Download{
		FileName: e.FileName,
		Href:     "data:text/csv;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(e.CSV),
	}
}

// DeprovisionResponse is the body of POST /api/deprovision.
type DeprovisionResponse struct {
	Identity       IdentityJSON `json:"identity"`
	Title          string       `json:"title"`
	Checklist      string       `json:"checklist"`
	Warnings       []string     `json:"warnings"`
	Notices        []string     `json:"notices"`
	Groups         GroupsJSON   `json:"groups"`
	IdentityRecord ExportJSON   `json:"identity_record"`
	DeviceRecord   *ExportJSON  `json:"device_record,omitempty"`
}

type IdentityJSON struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	External bool   `json:"external"`
}

type GroupsJSON struct {
	DL           []string `json:"dl"`
	SM           []string `json:"sm"`
	MG           []string `json:"mg"`
	Entra        []string `json:"entra"`
	AzureRemoval []string `json:"azure_removal"`
	SMFallback   bool     `json:"sm_member_list_fallback,omitempty"`
}

type ExportJSON struct {
	FileName string   `json:"file_name"`
	Header   []string `json:"header"`
	Values   []string `json:"values"`
	CSV      string   `json:"csv"`
}

func newDeprovisionResponse(res core.Result) DeprovisionResponse {
	out := DeprovisionResponse{
		Identity: IdentityJSON{
			Handle:   res.Identity.Handle,
			Email:    res.Identity.Email(),
			External: res.Identity.External(),
		},
		Title:     res.Checklist.Title,
		Checklist: res.Checklist.String(),
		Warnings:  nonNil(res.Checklist.Warnings),
		Notices:   nonNil(res.Notices),
		Groups: GroupsJSON{
			DL:           nonNil(res.DLGroups),
			SM:           nonNil(res.SMGroups),
			MG:           nonNil(res.MGGroups),
			Entra:        nonNil(res.EntraGroups),
			AzureRemoval: nonNil(res.AzureRemoval),
			SMFallback:   res.SMFallback,
		},
		IdentityRecord: exportJSON(res.IdentityExport),
	}
	if res.DeviceExport != nil {
		dev := exportJSON(*res.DeviceExport)
		out.DeviceRecord = &dev
	}
	return out
}

func exportJSON(e core.Export) ExportJSON {
	return ExportJSON{
		FileName: e.FileName,
		Header:   e.Record.Header(),
		Values:   e.Record.Values(),
		CSV:      string(e.CSV),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string             `json:"status"`
	Time    time.Time          `json:"time"`
	Limiter core.LimiterStatus `json:"limiter"`
	History bool               `json:"history"`
}
