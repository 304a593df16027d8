// Package ui provides terminal output for gpubench: the shared color
// palette and symbols, plain phase lines for logs and pipes, a live
// Bubble Tea progress view for interactive runs, and an ssh_config host
// picker built on Huh.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful phases
//	ColorError     (red)    - Failures and links below threshold
//	ColorWarning   (yellow) - Phases where some hosts failed
//	ColorMuted     (gray)   - Timings, secondary text
//	ColorSecondary (blue)   - In-progress indicators, host names
//
// ConfigureColor applies --no-color and output.color.
//
// # Progress
//
// Both PhaseDisplay and MeshProgress implement mesh.Observer, so the CLI
// hands whichever fits the terminal straight to mesh.New:
//
//	var obs mesh.Observer = ui.NewPhaseDisplay(os.Stderr)
//	if ui.IsTerminal(os.Stderr) {
//		p := ui.NewMeshProgress(os.Stderr)
//		p.Start()
//		defer p.Stop()
//		obs = p
//	}
package ui
