// Package httputil holds transport helpers shared by the backend client.
//
// [Retry] and [Policy] repeat an operation with exponential backoff, but only
// for failures wrapped in [RetryableError]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := http.DefaultClient.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    if resp.StatusCode >= 500 {
//	        return httputil.Retryable(fmt.Errorf("status %d", resp.StatusCode))
//	    }
//	    return nil
//	})
//
// Anything not marked retryable (a 404, a decode failure) is returned on the
// first attempt.
package httputil
