// Package security derives a read-only posture report from engine
// configuration. The report collapses individual knobs into yes/no verdicts
// (is reuse detection active, do tokens ever expire) so operators can audit
// a deployment without reading the full config.
package security
