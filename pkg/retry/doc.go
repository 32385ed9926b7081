// Package retry provides bounded exponential backoff for transient failures.
//
// # Overview
//
// Do runs an operation up to MaxAttempts times, sleeping between attempts
// with a delay that grows by Multiplier up to MaxDelay, plus optional
// jitter. Errors wrapped with NonRetryable stop the loop immediately,
// which lets callers distinguish definitive rejections from transient
// transport failures.
//
// # Usage
//
// Retry a request with the default bounds:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return send(ctx, payload)
//	})
//
// Stop retrying on a definitive response:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return err // transient, retried
//	    }
//	    defer resp.Body.Close()
//	    if resp.StatusCode < 500 {
//	        return retry.NonRetryable(fmt.Errorf("HTTP %d", resp.StatusCode))
//	    }
//	    return fmt.Errorf("HTTP %d", resp.StatusCode)
//	})
//
// # Context cancellation
//
// Do respects context cancellation both between attempts and during the
// backoff sleep. The wrapped context error reports which attempt was cut
// short.
package retry
