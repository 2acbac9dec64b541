package diag

import "texify/internal/source"

func New(sev Severity, rule string, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Rule:     rule,
		Primary:  primary,
		Message:  msg,
	}
}

func (d Diagnostic) WithFix(fix Fix) Diagnostic {
	d.Fixes = append(d.Fixes, fix)
	return d
}
