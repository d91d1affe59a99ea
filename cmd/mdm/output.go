package main

import (
	"fmt"
	"os"

	"mdm/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{Indent: true}

func writeOutput(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}
