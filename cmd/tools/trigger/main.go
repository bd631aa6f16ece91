package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Fires a pipeline run against a locally running server.
func main() {
	adminSecret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
	if adminSecret == "" {
		fmt.Println("Missing ADMIN_SECRET environment variable")
		os.Exit(1)
	}

	base := strings.TrimSpace(os.Getenv("SERVER_URL"))
	if base == "" {
		base = "http://localhost:8081"
	}

	req, err := http.NewRequest("POST", base+"/api/v1/admin/run", nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("X-Admin-Secret", adminSecret)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("Response Status: %s\n", resp.Status)
	if resp.StatusCode != http.StatusAccepted {
		os.Exit(1)
	}
}
