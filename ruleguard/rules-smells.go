// Package gorules holds the go-ruleguard rules run by gocritic over crmops.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards with the same return can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// logging keeps diagnostics on zap instead of stdout.
func logging(m dsl.Matcher) {
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `fmt.Print($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`write diagnostics through the injected *zap.Logger`)
}

// operationErrors requires stack-carrying errors in operation handlers so the
// failure envelope can list the trace.
func operationErrors(m dsl.Matcher) {
	m.Import(`errors`)
	m.Match(`errors.New($msg)`, `fmt.Errorf($*_)`).
		Where(m.File().PkgPath.Matches(`/domain/operation/builtin$`)).
		Report(`use github.com/pkg/errors in operations so failures carry a stack trace`)
}
