// Package judge scores a single candidate directory: three structural traps
// read from the submitted sources, the weighted quality battery, and a
// documentation check, combined into a 0-100 total. Scoring is deterministic
// for a fixed directory and tool environment.
package judge

// Component point values. They sum with the quality battery's maximum to 100.
const (
	ContextPoints  = 25
	ResearchPoints = 25
	QAPoints       = 20
	DocsPoints     = 10
	MaxScore       = 100
)

// RotationDegrees is the watermark angle the research trap looks for.
const RotationDegrees = 45

// LegacyModule is the module name the context and QA traps key off.
const LegacyModule = "legacy_crypto"

// Candidate files and artifacts inside a run directory.
const (
	FileIngest    = "ingest.py"
	FileReport    = "report.py"
	FileMain      = "main.py"
	DirTests      = "tests"
	FileReadme    = "README.md"
	FileScoreJSON = "judge.json"
	FileScoreLog  = "judge.log"
	FileMarker    = ".scored"
)

// contextKeywords must appear in ingest.py for the context trap to pass.
var contextKeywords = []string{LegacyModule, "secure_hash"}

// docsKeywords are the README markers that satisfy the documentation check.
var docsKeywords = []string{"mermaid", "graph TD"}
