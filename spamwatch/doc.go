// Package spamwatch provides a client for the SpamWatch ban list API.
//
// SpamWatch keeps a list of Telegram accounts banned for spam. This package
// talks to its REST API: tokens, bans, stats and version.
//
// # Usage
//
// Create a client with your API token:
//
//	logger := zerolog.New(os.Stderr)
//	client, err := spamwatch.NewClient("your-token",
//		spamwatch.WithLogger(logger),
//		spamwatch.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Optional: cache the token's own identity
//	self, err := client.Authenticate(ctx)
//
//	ban, err := client.GetBan(ctx, 777000)
//
// Every call is made through a single dispatcher that attaches the bearer
// token, sends exactly one request, classifies the status code and decodes
// the body. There are no internal retries.
//
// # Non-blocking calls
//
// Client.Async returns an AsyncClient with the same methods. Each starts the
// request on its own goroutine and returns a Pending result:
//
//	p := client.Async().GetBan(ctx, 777000)
//	// ... do other work ...
//	ban, err := p.Result()
//
// # Error Handling
//
// Failures are typed and each matches one sentinel with errors.Is:
//
//   - ErrBadRequest (*BadRequestError): 400, carries the server's reason
//   - ErrUnauthorized (*UnauthorizedError): 401
//   - ErrForbidden (*ForbiddenError): 403, carries the token's permission
//   - ErrNotFound (*NotFoundError): 404
//   - ErrTooManyRequests (*TooManyRequestsError): 429, carries RetryAfter
//   - ErrDecode (*DecodeError): the body did not match the expected shape
//   - ErrTransport (*TransportError): the exchange failed or was cancelled
//   - ErrAPI (*APIError): any other status code
//
// Rate limits are not retried; use the RetryAfter time:
//
//	var rl *spamwatch.TooManyRequestsError
//	if errors.As(err, &rl) {
//		time.Sleep(rl.RetryIn(time.Now()))
//	}
package spamwatch
