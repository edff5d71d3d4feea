package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if v := os.Getenv("DOSSIER_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

type outcome struct {
	Query struct {
		ID string `json:"id"`
	} `json:"query"`
	Status   string                     `json:"status"`
	Results  map[string]json.RawMessage `json:"results"`
	Entities []json.RawMessage          `json:"entities"`
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test...")

	fmt.Println("1. Health...")
	if _, ok := sendRequest("GET", "/healthz", nil); !ok {
		fail("Health")
	}
	fmt.Println("PASSED: Health")

	fmt.Println("2. Submitting email query...")
	body, ok := sendRequest("POST", "/queries", map[string]string{
		"type":  "email",
		"value": fmt.Sprintf("smoke+%d@example.com", time.Now().Unix()),
	})
	if !ok {
		fail("Submit query")
	}
	var out outcome
	if err := json.Unmarshal(body, &out); err != nil {
		fail("Decode outcome: " + err.Error())
	}
	if out.Status != "completed" || len(out.Entities) == 0 {
		fail(fmt.Sprintf("Unexpected outcome: status=%s entities=%d", out.Status, len(out.Entities)))
	}
	fmt.Printf("PASSED: Submit query (%d results, %d entities)\n", len(out.Results), len(out.Entities))

	fmt.Println("3. Fetching stored query...")
	if _, ok := sendRequest("GET", "/queries/"+out.Query.ID, nil); !ok {
		fail("Fetch query")
	}
	if _, ok := sendRequest("GET", "/queries/"+out.Query.ID+"/entities", nil); !ok {
		fail("Fetch entities")
	}
	fmt.Println("PASSED: Fetch query")

	fmt.Println("4. Scanner stats...")
	if _, ok := sendRequest("GET", "/scanners/stats", nil); !ok {
		fail("Scanner stats")
	}
	fmt.Println("PASSED: Scanner stats")
}

func fail(step string) {
	fmt.Println("FAILED: " + step)
	os.Exit(1)
}

func sendRequest(method, endpoint string, payload interface{}) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}
	return respBody, true
}
