package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/domain/filings"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// PayloadArchive stores raw extraction payloads for audit. Large
// payloads are zstd-compressed before insert.
type PayloadArchive struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

var _ filings.Archiver = (*PayloadArchive)(nil)

// NewPayloadArchive creates a payload archive.
func NewPayloadArchive(txManager *TxManager) (*PayloadArchive, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &PayloadArchive{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Store writes the payload for a filing.
func (a *PayloadArchive) Store(ctx context.Context, filingID id.ID, payload []byte) error {
	algo := CompressionNone
	body := payload
	if len(payload) > a.compressThreshold {
		body = a.encoder.EncodeAll(payload, nil)
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO filing_payloads (filing_id, payload, compression_algo, original_size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (filing_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			compression_algo = EXCLUDED.compression_algo,
			original_size = EXCLUDED.original_size,
			created_at = EXCLUDED.created_at
	`

	querier := a.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql, filingID, body, algo, len(payload), time.Now().UTC())
	return err
}

// Load reads a filing's payload back, decompressing when needed.
func (a *PayloadArchive) Load(ctx context.Context, filingID id.ID) ([]byte, error) {
	sql := `
		SELECT payload, compression_algo
		FROM filing_payloads
		WHERE filing_id = $1
	`

	var (
		body []byte
		algo CompressionAlgo
	)
	querier := a.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, filingID).Scan(&body, &algo); err != nil {
		if isNoRows(err) {
			return nil, apperror.NewNotFound("filing payload", filingID.String())
		}
		return nil, fmt.Errorf("query payload: %w", err)
	}

	if algo == CompressionZstd {
		decompressed, err := a.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
		return decompressed, nil
	}

	return body, nil
}
