package consolidate

import (
	"errors"

	"github.com/gviegas/consolidate/linear"
)

// visiblePredicate implements the three visibility predicates of §4.8
// against one fragment's flag byte.
func visiblePredicate(flags byte, mode DrawMode) bool {
	switch mode {
	case RenderNormal:
		return flags&(FlagVisible|FlagHide|FlagHighlighted) == FlagVisible
	case RenderHidden:
		return flags&(FlagVisible|FlagHide) == 0
	case RenderHighlighted:
		return flags&(FlagHighlighted|FlagHide) == FlagHighlighted
	default:
		return false
	}
}

// ApplyAttributes is the per-frame draw-call partition pass (§4.8/§4.9):
// for a single-fragment mesh it sets visibility and theming directly;
// for a container mesh it walks the packed fragment range and emits a
// groups list covering the visible sub-ranges, splitting additionally
// on theming-color changes, collapsing to the fast path when the whole
// range forms one group.
func (r *Result) ApplyAttributes(meshIndex int, fl FragmentList, drawMode DrawMode) (*Mesh, error) {
	if meshIndex < 0 || meshIndex >= len(r.Meshes) {
		return nil, errors.New("consolidate: mesh index out of range")
	}
	m := r.Meshes[meshIndex]
	flags := fl.VizFlags()

	if m.Kind == MeshSingle {
		fid := m.FragIDs[0]
		m.Visible = visiblePredicate(flags[fid], drawMode)
		if color, ok := fl.ThemingColor(m.DBID); ok {
			m.ThemingColor = color
			m.HasTheming = true
		} else {
			m.HasTheming = false
		}
		m.Groups = m.Groups[:0]
		return m, nil
	}

	instanced := m.Variant == VariantInstanced
	var groups []Group
	var cur *Group

	var idxCursor, edgeCursor, instCursor int
	for i, fid := range m.FragIDs {
		cnt := m.Segments[i]
		edgeCnt := 0
		if m.EdgeSegments != nil {
			edgeCnt = m.EdgeSegments[i]
		}

		vis := visiblePredicate(flags[fid], drawMode)
		var color linear.V4
		var hasColor bool
		if vis {
			color, hasColor = fl.ThemingColor(fl.DBID(fid))
		}

		switch {
		case !vis:
			cur = nil
		case cur != nil && cur.HasTheming == hasColor && (!hasColor || cur.ThemingColor == color):
			if instanced {
				cur.NumInstances += cnt
			} else {
				cur.Count += cnt
				cur.EdgeCount += edgeCnt
			}
		default:
			g := Group{HasTheming: hasColor, ThemingColor: color}
			if instanced {
				g.Instanced = true
				g.InstanceStart = instCursor
				g.NumInstances = cnt
			} else {
				g.Start = idxCursor
				g.Count = cnt
				if m.EdgeSegments != nil {
					g.HasEdges = true
					g.EdgeStart = edgeCursor
					g.EdgeCount = edgeCnt
				}
			}
			groups = append(groups, g)
			cur = &groups[len(groups)-1]
		}

		idxCursor += cnt
		edgeCursor += edgeCnt
		if instanced {
			instCursor += cnt
		}
	}

	total := idxCursor
	if instanced {
		total = instCursor
	}

	switch {
	case len(groups) == 0:
		m.Visible = false
		m.HasTheming = false
		m.Groups = m.Groups[:0]
	case len(groups) == 1 && spansWhole(groups[0], instanced, total):
		m.Visible = true
		m.HasTheming = groups[0].HasTheming
		m.ThemingColor = groups[0].ThemingColor
		m.Groups = m.Groups[:0]
	default:
		m.Visible = true
		m.Groups = append(m.Groups[:0], groups...)
	}

	return m, nil
}

// spansWhole reports whether g alone covers a container's entire range,
// the fast path from §4.8.
func spansWhole(g Group, instanced bool, total int) bool {
	if instanced {
		return g.InstanceStart == 0 && g.NumInstances == total
	}
	return g.Start == 0 && g.Count == total
}
