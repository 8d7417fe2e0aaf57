package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tactics-sim/internal/infrastructure/storage"
)

func main() {
	if len(os.Args) < 3 {
		printHelp()
		return
	}

	f, err := storage.NewStore("").Load(os.Args[2])
	if err != nil {
		fmt.Printf("Failed to read save: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		fmt.Printf("save_id:   %s\n", f.SaveID)
		fmt.Printf("time:      %s\n", f.Time().UTC().Format(time.RFC3339))
		fmt.Printf("build_id:  %d\n", f.BuildID)
		fmt.Printf("session:   %d bytes\n", len(f.Session))
		for _, a := range f.Areas {
			fmt.Printf("area %-12s explored=%d words body=%d bytes\n", a.ID, len(a.Explored), len(a.Body))
		}
	case "session":
		printJSON(f.Session)
	case "area":
		if len(os.Args) < 4 {
			fmt.Println("Usage: savedump area <file> <area_id>")
			return
		}
		for _, a := range f.Areas {
			if a.ID == os.Args[3] {
				printJSON(a.Body)
				return
			}
		}
		fmt.Printf("Area %q not in save\n", os.Args[3])
		os.Exit(1)
	default:
		printHelp()
	}
}

func printJSON(data []byte) {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Printf("Invalid JSON block: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.String())
}

func printHelp() {
	fmt.Println("Usage: savedump <command> <file> [args]")
	fmt.Println("Commands:")
	fmt.Println("  info     - header and area sections")
	fmt.Println("  session  - session block as JSON")
	fmt.Println("  area ID  - area body as JSON")
}
