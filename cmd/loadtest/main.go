// loadtest drives the two race scenarios that matter in this system against
// a running server: the same checkout token submitted many times at once
// (must yield exactly one order), and the success-redirect URL replayed
// concurrently for one payment session (stock must move exactly once).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Result records one HTTP outcome for aggregation.
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	email := flag.String("email", "loadtest@example.com", "checkout email")
	submits := flag.Int("submits", 20, "concurrent submits of one checkout token")
	sessionID := flag.String("session", "", "gateway session id for the finalize race (optional)")
	finalizes := flag.Int("finalizes", 10, "concurrent success-redirect replays")
	flag.Parse()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Timeout: 5 * time.Second,
		Jar:     jar,
		// Redirects are outcomes here, not navigation.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	token, err := fetchToken(client, *baseURL)
	if err != nil {
		panic(fmt.Sprintf("fetch checkout token: %v", err))
	}
	fmt.Printf("start double-submit test: %d concurrent submits, one token\n", *submits)
	results := runDoubleSubmit(client, *baseURL, token, *email, *submits)
	printSummary("double_submit", results)

	if *sessionID != "" {
		fmt.Printf("\nstart finalize race: session=%s replays=%d\n", *sessionID, *finalizes)
		results2 := runFinalizeRace(client, *baseURL, *sessionID, *finalizes)
		printSummary("finalize_race", results2)
	}
}

// fetchToken views the confirmation page once and extracts the minted
// idempotency token (the session cookie lands in the jar as a side effect).
func fetchToken(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/api/checkout")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Data struct {
			IdempotencyKey string `json:"idempotency_key"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", err
	}
	if out.Data.IdempotencyKey == "" {
		return "", fmt.Errorf("no idempotency_key in response")
	}
	return out.Data.IdempotencyKey, nil
}

func runDoubleSubmit(client *http.Client, baseURL, token, email string, total int) []Result {
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			form := url.Values{}
			form.Set("idempotency_key", token)
			form.Set("email", email)
			results[idx] = postForm(client, baseURL+"/api/checkout", form)
		}(i)
	}

	wg.Wait()
	return results
}

func runFinalizeRace(client *http.Client, baseURL, sessionID string, total int) []Result {
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := client.Get(baseURL + "/payment/success?session_id=" + url.QueryEscape(sessionID))
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			results[idx] = Result{Status: resp.StatusCode, Body: string(body)}
		}(i)
	}

	wg.Wait()
	return results
}

func postForm(client *http.Client, url string, form url.Values) Result {
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary aggregates status code distribution.
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 303, 400, 404, 409, 429, 500, 502, 503} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
