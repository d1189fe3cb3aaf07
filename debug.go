// Package main - debug.go
//
// This file implements centralized logging and debug visualization.
//
// Major Components:
//
// 1. Logging System:
//    - zerolog logger writing to Debug.log and a console writer
//    - Four log levels: DEBUG, INFO, WARN, ERROR
//    - File is truncated (cleared) on each startup
//    - Global logger instance accessible via convenience functions
//
// 2. Debug Visualization:
//    - Annotated copies of observed frames written as PNG files
//    - Shore groups, aboard tokens, boat and midline drawn with OpenCV
//
// Logging Best Practices:
//   - DEBUG: Detailed operation info (candidate counts, coordinates, polling)
//   - INFO: Important events (startup, calibration, planned moves, crossings)
//   - WARN: Non-critical issues (window focus failure, arrival timeout)
//   - ERROR: Serious problems (capture failure, stopped controller)
package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Logger wraps the zerolog logger and the log file it writes to.
type Logger struct {
	file *os.File
	zl   zerolog.Logger
}

var globalLogger *Logger

// InitLogger initializes the global logger. The log file is truncated
// (cleared) on each startup. An empty path logs to the console only.
func InitLogger(path, level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000000Z07:00"
	console := zerolog.SyncWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})

	var file *os.File
	writers := []io.Writer{console}
	if path != "" {
		// Use O_TRUNC to clear the file on startup
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, zerolog.SyncWriter(file))
	}

	globalLogger = &Logger{
		file: file,
		zl:   zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger(),
	}

	globalLogger.Info("Logger initialized (level %s)", lvl)
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	if globalLogger != nil {
		globalLogger.Info("Logger closing")
		if globalLogger.file != nil {
			globalLogger.file.Close()
		}
		globalLogger = nil
	}
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Info logs info level messages
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error logs error level messages
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// LogDebug is a convenience function for debug logging
func LogDebug(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(format, v...)
	}
}

// LogInfo is a convenience function for info logging
func LogInfo(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Info(format, v...)
	}
}

// LogWarn is a convenience function for warning logging
func LogWarn(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(format, v...)
	}
}

// LogError is a convenience function for error logging
func LogError(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Error(format, v...)
	}
}

// structuredLogger returns the global zerolog logger for field-based
// logging, or a disabled logger before InitLogger.
func structuredLogger() *zerolog.Logger {
	if globalLogger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &globalLogger.zl
}

// Overlay colours (RGBA, drawn onto BGR mats by gocv)
var (
	overlayMissionary = color.RGBA{0, 200, 255, 255}
	overlayCannibal   = color.RGBA{255, 60, 60, 255}
	overlayAboard     = color.RGBA{255, 255, 0, 255}
	overlayBoat       = color.RGBA{255, 140, 0, 255}
	overlayMidline    = color.RGBA{200, 200, 200, 255}
)

// DrawSighting annotates frame in place with the classified sighting:
// the midline, a box per shore token, a ring per aboard token, the boat
// marker and the symbolic state as text.
func DrawSighting(frame *gocv.Mat, gs GroupedSighting) {
	if frame.Empty() {
		return
	}
	mid := frame.Cols() / 2
	gocv.Line(frame, image.Pt(mid, 0), image.Pt(mid, frame.Rows()), overlayMidline, 1)

	for _, g := range []ShoreGroup{gs.Left, gs.Right} {
		for _, p := range g.Missionaries {
			drawToken(frame, p, "M", overlayMissionary)
		}
		for _, p := range g.Cannibals {
			drawToken(frame, p, "C", overlayCannibal)
		}
	}
	for _, p := range gs.Aboard.Missionaries {
		gocv.Circle(frame, image.Pt(p.X, p.Y), 18, overlayAboard, 2)
		drawToken(frame, p, "M", overlayMissionary)
	}
	for _, p := range gs.Aboard.Cannibals {
		gocv.Circle(frame, image.Pt(p.X, p.Y), 18, overlayAboard, 2)
		drawToken(frame, p, "C", overlayCannibal)
	}

	if gs.Boat != nil {
		gocv.Circle(frame, image.Pt(gs.Boat.X, gs.Boat.Y), 6, overlayBoat, -1)
		gocv.PutText(frame, "BOAT "+gs.BoatSide.String(), image.Pt(gs.Boat.X+10, gs.Boat.Y+20),
			gocv.FontHersheySimplex, 0.5, overlayBoat, 1)
	}

	gocv.PutText(frame, gs.Symbolic().String(), image.Pt(10, 24), gocv.FontHersheySimplex, 0.7, overlayMidline, 2)
}

func drawToken(frame *gocv.Mat, p Point, label string, c color.RGBA) {
	box := image.Rect(p.X-15, p.Y-15, p.X+15, p.Y+15)
	gocv.Rectangle(frame, box, c, 2)
	gocv.PutText(frame, label, image.Pt(box.Min.X, box.Min.Y-4), gocv.FontHersheySimplex, 0.5, c, 1)
}

// SaveDebugFrame writes an annotated copy of frame into dir and returns the
// file path. The original frame is left untouched.
func SaveDebugFrame(dir string, tick int, frame gocv.Mat, gs GroupedSighting) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug dir: %w", err)
	}

	annotated := frame.Clone()
	defer annotated.Close()
	DrawSighting(&annotated, gs)

	name := fmt.Sprintf("tick_%04d_%s.png", tick, time.Now().Format("150405.000"))
	path := filepath.Join(dir, name)
	if !gocv.IMWrite(path, annotated) {
		return "", fmt.Errorf("failed to write debug frame %s", path)
	}
	LogDebug("Saved debug frame %s", path)
	return path, nil
}
