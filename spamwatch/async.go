package spamwatch

import "context"

// Pending is the result of a call made through an AsyncClient
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// start runs fn on its own goroutine
func start[T any](ctx context.Context, fn func(context.Context) (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn(ctx)
	}()
	return p
}

// Done is closed once the call has completed
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the call completes
func (p *Pending[T]) Result() (T, error) {
	<-p.done
	return p.value, p.err
}

// Wait blocks until the call completes or ctx is done. Giving up on the wait
// does not abort the exchange; cancel the context the call was started with
// for that.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncClient is the non-blocking view of a Client. Every method starts the
// call immediately and returns without waiting for the response. Results are
// classified and decoded exactly like the blocking methods.
type AsyncClient struct {
	client *Client
}

// Client returns the underlying blocking client
func (a *AsyncClient) Client() *Client {
	return a.client
}

func (a *AsyncClient) Authenticate(ctx context.Context) *Pending[*Token] {
	return start(ctx, a.client.Authenticate)
}

func (a *AsyncClient) Version(ctx context.Context) *Pending[*Version] {
	return start(ctx, a.client.Version)
}

func (a *AsyncClient) GetSelf(ctx context.Context) *Pending[*Token] {
	return start(ctx, a.client.GetSelf)
}

func (a *AsyncClient) GetTokens(ctx context.Context) *Pending[[]Token] {
	return start(ctx, a.client.GetTokens)
}

func (a *AsyncClient) CreateToken(ctx context.Context, userID int64, permission Permission) *Pending[*Token] {
	return start(ctx, func(ctx context.Context) (*Token, error) {
		return a.client.CreateToken(ctx, userID, permission)
	})
}

func (a *AsyncClient) GetToken(ctx context.Context, id int) *Pending[*Token] {
	return start(ctx, func(ctx context.Context) (*Token, error) {
		return a.client.GetToken(ctx, id)
	})
}

func (a *AsyncClient) DeleteToken(ctx context.Context, id int) *Pending[struct{}] {
	return start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.DeleteToken(ctx, id)
	})
}

func (a *AsyncClient) GetBans(ctx context.Context) *Pending[[]Ban] {
	return start(ctx, a.client.GetBans)
}

func (a *AsyncClient) GetBanIDs(ctx context.Context) *Pending[[]int64] {
	return start(ctx, a.client.GetBanIDs)
}

func (a *AsyncClient) GetBan(ctx context.Context, userID int64) *Pending[*Ban] {
	return start(ctx, func(ctx context.Context) (*Ban, error) {
		return a.client.GetBan(ctx, userID)
	})
}

func (a *AsyncClient) AddBan(ctx context.Context, userID int64, reason, message string) *Pending[struct{}] {
	return start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.AddBan(ctx, userID, reason, message)
	})
}

func (a *AsyncClient) AddBans(ctx context.Context, bans []BanRequest) *Pending[struct{}] {
	return start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.AddBans(ctx, bans)
	})
}

func (a *AsyncClient) DeleteBan(ctx context.Context, userID int64) *Pending[struct{}] {
	return start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.DeleteBan(ctx, userID)
	})
}

func (a *AsyncClient) Stats(ctx context.Context) *Pending[*Stats] {
	return start(ctx, a.client.Stats)
}
