package engine

import "ibus-m17n/internal/m17n"

// ProcessKey feeds key through the input context. Text produced by the
// lookup is committed. It reports whether the key was handled.
func (s *Session) ProcessKey(key m17n.Symbol) bool {
	if !s.usable() || key == m17n.Nil {
		return false
	}
	if s.ctx.Filter(key) {
		return true
	}

	var produced m17n.Text
	done := s.ctx.Lookup(key, &produced)
	if produced.Len() > 0 {
		text, err := produced.UTF8()
		if err != nil {
			s.log.Debug("dropping produced text", "key", string(key), "error", err)
		} else {
			s.host.CommitText(s, text)
			s.updatePreedit()
		}
	}
	return done
}
