// Package main provides a CLI tool for smoke-checking a running moneyclip
// server's JSON endpoints.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path     string
	method   string
	body     string
	contains []string
}

var endpoints = []endpoint{
	// Public
	{path: "/api/health", method: "GET", contains: []string{`"status":"ok"`}},
	{path: "/api/version", method: "GET", contains: []string{`"version"`}},

	// Calculation
	{path: "/api/calculation/daily-clip", method: "GET", contains: []string{`"daily_clip"`, `"days_remaining"`}},
	{path: "/api/calculation/daily-clip?mode=end_of_month", method: "GET", contains: []string{`"mode":"end_of_month"`}},
	{path: "/api/calculation/scenario", method: "POST", body: `{"expense_amount": 25}`, contains: []string{`"recommendation"`}},
	{path: "/api/calculation/cash-flow?days=14", method: "GET", contains: []string{`"timeline"`}},
	{path: "/api/calculation/summary", method: "GET", contains: []string{`"next_7_days"`}},
	{path: "/api/calculation/history?limit=5", method: "GET", contains: []string{`"history"`}},

	// Planning (file backend only)
	{path: "/api/planning/accounts", method: "GET", contains: []string{`"accounts"`}},
	{path: "/api/planning/expenses", method: "GET", contains: []string{`"expenses"`}},
	{path: "/api/planning/income", method: "GET", contains: []string{`"income"`}},
	{path: "/api/planning/paycheck-schedule", method: "GET", contains: []string{`"schedules"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	token := flag.String("token", os.Getenv("CLIP_TOKEN"), "Bearer token for authenticated endpoints")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, *token, ep)

		switch {
		case r.err != nil:
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		case r.status != http.StatusOK:
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
			if *verbose {
				fmt.Printf("     Body: %s\n", r.body)
			}
		default:
			passed++
			if *verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func validateEndpoint(client *http.Client, baseURL, token string, ep endpoint) result {
	start := time.Now()

	var reqBody io.Reader
	if ep.body != "" {
		reqBody = bytes.NewBufferString(ep.body)
	}
	req, err := http.NewRequest(ep.method, baseURL+ep.path, reqBody)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if ep.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
		body:     string(body),
	}
	if r.status != http.StatusOK {
		return r
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		r.err = fmt.Errorf("wrong content type: got %q, expected application/json", ct)
		return r
	}
	var js any
	if err := json.Unmarshal(body, &js); err != nil {
		r.err = fmt.Errorf("invalid JSON: %w", err)
		return r
	}
	for _, needle := range ep.contains {
		if !strings.Contains(r.body, needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}
	return r
}
