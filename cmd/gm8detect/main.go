package main

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof" // profiling
	"os"
	"strings"

	"gm8detect/internal/gm8detect/cmd"
	"gm8detect/internal/gm8detect/log"
)

const profileAddr = "localhost:6060"

// profileAddress maps GM8DETECT_PROFILE to a listen address. Any value
// without a colon enables profiling on the default address.
func profileAddress(v string) string {
	if strings.Contains(v, ":") {
		return v
	}
	return profileAddr
}

func main() {
	defer log.RecoverPanic("main", func() {
		slog.Error("gm8detect stopped after an unhandled panic")
	})

	if v := os.Getenv("GM8DETECT_PROFILE"); v != "" {
		addr := profileAddress(v)
		go func() {
			slog.Info("pprof listening", "addr", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				slog.Error("pprof server stopped", "addr", addr, "error", err)
			}
		}()
	}

	cmd.Execute()
}
