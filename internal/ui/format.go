package ui

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kikiluvv/reactionsync/internal/session"
	"github.com/kikiluvv/reactionsync/pkg/util"
)

func clockText(pos, dur float64) string {
	return util.FormatClock(pos) + " / " + util.FormatClock(dur)
}

// offsetText renders an offset the way the offset entry parses it back
func offsetText(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func captionText(snap session.Snapshot) string {
	name := func(path string) string {
		if path == "" {
			return "none"
		}
		return filepath.Base(path)
	}

	var b strings.Builder
	b.WriteString("Reaction: ")
	b.WriteString(name(snap.Reaction.Path))
	b.WriteString("  |  Source: ")
	b.WriteString(name(snap.Source.Path))
	b.WriteString("  |  Offset: ")
	b.WriteString(offsetText(snap.Offset))
	b.WriteString("s")
	return b.String()
}
