// Package client is the Go SDK for the QuickSand analysis API.
//
// # Analysing a file
//
//	c, err := client.New("http://localhost:8001")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, _ := os.Open("invoice.doc")
//	defer f.Close()
//
//	resp, err := c.Analyze(ctx, "invoice.doc", f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.AnalysisResults.Risk, resp.AnalysisResults.Score)
//
// # Errors
//
// Every non-2xx answer is returned as *APIError carrying the HTTP status and
// the server's "detail" message:
//
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
//	    // empty upload
//	}
//
// Analysis can take a while for large documents; the default client timeout
// is two minutes and can be changed with WithTimeout or WithHTTPClient.
package client
