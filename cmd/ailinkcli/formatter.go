package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/pkg/session"
)

type OutputFormat string

const (
	FormatCLI  OutputFormat = "cli"
	FormatJSON OutputFormat = "json"
)

func formatJSON(data any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatStatus(reply *StatusReply) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Strategy:          %s\n", reply.Controller.Strategy)
	fmt.Fprintf(&sb, "Iteration:         %d/%d\n", reply.Controller.Iteration, reply.Controller.TrainIterations)
	fmt.Fprintf(&sb, "Run complete:      %v\n", reply.Controller.RunComplete)
	if reply.Controller.LastOutcome != "" {
		fmt.Fprintf(&sb, "Last outcome:      %s\n", reply.Controller.LastOutcome)
	}
	if len(reply.Controller.Outcomes) > 0 {
		keys := make([]string, 0, len(reply.Controller.Outcomes))
		for k := range reply.Controller.Outcomes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, reply.Controller.Outcomes[k]))
		}
		fmt.Fprintf(&sb, "Outcomes:          %s\n", strings.Join(parts, " "))
	}

	fmt.Fprintf(&sb, "Listener:          %s (%d/%d sessions)\n",
		reply.Listener.Address, reply.Listener.ActiveSessions, reply.Listener.MaxSessions)
	fmt.Fprintf(&sb, "Connections:       accepted=%d rejected=%d\n",
		reply.Listener.Accepted, reply.Listener.Rejected)
	fmt.Fprintf(&sb, "Protocol:          states=%d commands=%d frames=%d decode-errors=%d\n",
		reply.Listener.StatesReceived, reply.Listener.CommandsSent,
		reply.Listener.FramesFetched, reply.Listener.DecodeErrors)
	fmt.Fprintf(&sb, "Events:            published=%d dropped=%d\n",
		reply.Events.Published, reply.Events.Dropped)

	return sb.String()
}

func formatSessions(sessions []session.Info) string {
	if len(sessions) == 0 {
		return "No active sessions\n"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREMOTE\tSTRATEGY\tUPTIME\tSTATES\tCOMMANDS\tFRAMES")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			shortID(s.ID), s.Remote, s.Strategy,
			time.Since(s.ConnectedAt).Round(time.Second),
			s.StatesReceived, s.CommandsSent, s.FramesFetched)
	}
	w.Flush()
	return buf.String()
}

func formatEpisodes(episodes []recorder.Episode) string {
	if len(episodes) == 0 {
		return "No recorded episodes\n"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTRATEGY\tOUTCOME\tSTARTED\tDURATION\tSTEPS")
	for _, e := range episodes {
		duration := "-"
		if e.EndedAt != nil {
			duration = e.EndedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		outcome := e.Outcome
		if outcome == "" {
			outcome = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			shortID(e.ID), e.Strategy, outcome,
			e.StartedAt.Format("15:04:05"), duration, e.Steps)
	}
	w.Flush()
	return buf.String()
}

func formatSteps(steps []recorder.Step) string {
	if len(steps) == 0 {
		return "No recorded steps\n"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTIME\tKIND\tPAYLOAD")
	for _, s := range steps {
		payload := s.Payload
		if len(payload) > 60 {
			payload = payload[:57] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			s.Seq, s.Timestamp.Format("15:04:05.000"), s.Kind, payload)
	}
	w.Flush()
	return buf.String()
}

func formatEvents(reply *StatusReply) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Published:         %d\n", reply.Events.Published)
	fmt.Fprintf(&sb, "Dropped:           %d\n", reply.Events.Dropped)
	fmt.Fprintf(&sb, "Publish channel:   %d/%d\n", reply.Events.PublishChLen, reply.Events.PublishChCap)

	if len(reply.Events.Topics) > 0 {
		sb.WriteString("\n")
		w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOPIC\tSUBSCRIBERS")
		for _, t := range reply.Events.Topics {
			fmt.Fprintf(w, "%s\t%d\n", t.Topic, t.Subscribers)
		}
		w.Flush()
	}
	return sb.String()
}

func formatLogging(reply *LoggingReply) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Default level:     %s\n", reply.Default)

	if len(reply.Components) > 0 {
		names := make([]string, 0, len(reply.Components))
		for name := range reply.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("\n")
		w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPONENT\tLEVEL")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, reply.Components[name])
		}
		w.Flush()
	}
	return sb.String()
}

func formatStrategy(reply *StrategyReply) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Active strategy:   %s\n", reply.Strategy)
	fmt.Fprintf(&sb, "Available:         %s\n", strings.Join(reply.Available, ", "))
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
