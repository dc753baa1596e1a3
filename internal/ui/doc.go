// Package ui provides terminal UI components for the mspprobe CLI.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal
// output. Most commands follow a "run once and exit" pattern: components
// render their content and return without user interaction. The one live
// display is the verification progress model, which tracks readback byte
// counts while a verify run is in flight.
//
// Component types:
//
//   - Header: command banner showing operation name and parameters
//   - Progress: byte-count progress bar for long readback runs
//   - Result: success/failure boxes with styled detail tables
//
// ConfirmDangerousOperation gates memory writes behind an explicit typed
// acknowledgement.
package ui
