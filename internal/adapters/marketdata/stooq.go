package marketdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/backsim/internal/domain"
)

const (
	defaultStooqBase = "https://stooq.com"

	// Stooq no publica límites; 2 req/s es conservador para un endpoint
	// gratuito y de sobra para descargar un universo de backtest.
	stooqRatePerSec = 2

	// Workers de descarga. El limiter marca el ritmo; más workers solo
	// añadirían requests en vuelo esperando turno.
	fetchWorkers = 4

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Stooq descarga series diarias del endpoint CSV de stooq.com, con rate
// limiting y retries.
type Stooq struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewStooq crea un cliente con el base URL dado.
// Si base está vacío, usa stooq.com.
func NewStooq(base string) *Stooq {
	if base == "" {
		base = defaultStooqBase
	}
	return &Stooq{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(stooqRatePerSec, 1),
	}
}

// FetchDaily descarga las barras diarias de un símbolo en [from, to].
func (s *Stooq) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	url := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		s.base, stooqSymbol(symbol), from.Format("20060102"), to.Format("20060102"))

	body, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("marketdata.FetchDaily: %s: %w", symbol, err)
	}
	// Stooq responde 200 con "No data" para símbolos desconocidos.
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("No data")) {
		return nil, fmt.Errorf("marketdata.FetchDaily: %s: no data (unknown symbol?)", symbol)
	}

	bars, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("marketdata.FetchDaily: %s: %w", symbol, err)
	}
	return bars, nil
}

// FetchSymbols descarga el universo con un pool de workers y construye
// una fuente en memoria. El rate limiter compartido acota el ritmo real;
// los workers solo solapan la latencia. Los asset ids siguen el orden de
// la lista, empezando en 1.
func (s *Stooq) FetchSymbols(ctx context.Context, symbols []string, from, to time.Time) (*Memory, error) {
	type result struct {
		idx  int
		bars []domain.Bar
		err  error
	}

	workers := fetchWorkers
	if len(symbols) < workers {
		workers = len(symbols)
	}

	workCh := make(chan int, len(symbols))
	resultCh := make(chan result, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				bars, err := s.FetchDaily(ctx, symbols[idx], from, to)
				resultCh <- result{idx: idx, bars: bars, err: err}
			}
		}()
	}

	for i := range symbols {
		workCh <- i
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	series := make([][]domain.Bar, len(symbols))
	errs := make([]error, len(symbols))
	for res := range resultCh {
		series[res.idx] = res.bars
		errs[res.idx] = res.err
	}
	// primer error en orden de lista, para que el fallo sea estable
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	src := NewMemory()
	for i, bars := range series {
		slog.Info("marketdata: fetched symbol", "symbol", symbols[i], "bars", len(bars))
		asset := domain.Equity(domain.AssetID(i+1), strings.ToUpper(symbols[i]))
		if err := src.Add(asset, bars); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// get hace un GET con rate limiting y backoff exponencial.
func (s *Stooq) get(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := s.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("marketdata: rate limited by stooq", "attempt", attempt+1)
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (s *Stooq) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// stooqSymbol normaliza un ticker al formato de stooq: minúsculas y
// sufijo de mercado .us si no trae ninguno. Los índices (^spx) van tal
// cual.
func stooqSymbol(symbol string) string {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	if strings.HasPrefix(sym, "^") || strings.Contains(sym, ".") {
		return sym
	}
	return sym + ".us"
}
