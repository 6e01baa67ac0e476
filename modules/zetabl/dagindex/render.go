// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dagindex

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/antgroup/zeta-branchless/modules/zetabl/oid"
)

// CommitLabel is one line of rendered output: a commit oid, its subject,
// and the activity status driving its color (SPEC_FULL.md "Supplemented
// features", smartlog-style activity rendering). Active commits are the
// ones a restack hint cares about; Obsolete ones are rendered dimmed so a
// user can see what a rewrite left behind without mistaking it for
// current state.
type CommitLabel struct {
	OID     oid.OID
	Subject string
	Active  bool
}

// Render draws a plain-text indented tree of labels in commits order
// (ancestors first, as returned by Index.Sort): indentation tracks
// parent depth within the rendered set, and each line is colorized by
// activity status using the same ansi.ColorCode style the teacher's
// survey templates use, falling back to plain text when color is off.
func (idx *Index) Render(labels []CommitLabel, color bool) string {
	byOID := make(map[oid.OID]CommitLabel, len(labels))
	order := make([]oid.OID, 0, len(labels))
	for _, l := range labels {
		byOID[l.OID] = l
		order = append(order, l.OID)
	}
	depth := make(map[oid.OID]int, len(order))
	var b strings.Builder
	for _, o := range order {
		d := 0
		for _, p := range idx.parents(o) {
			if pd, ok := depth[p]; ok && pd+1 > d {
				d = pd + 1
			}
		}
		depth[o] = d
		l := byOID[o]
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", d), shortOID(o), l.Subject)
		if color {
			style := "green"
			if !l.Active {
				style = "black+h"
			}
			line = ansi.ColorCode(style) + line + ansi.ColorCode("reset")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func shortOID(o oid.OID) string {
	s := o.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
