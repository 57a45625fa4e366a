// Package service runs the waqt daemon under the Windows Service Control
// Manager and installs it there. Every other file is Windows only.
package service
