//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sedimentwatch/river-turbidity-etl/internal/adapter/kafka"
	"github.com/sedimentwatch/river-turbidity-etl/internal/config"
	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
	"github.com/sedimentwatch/river-turbidity-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-raw-scenes"
	testSinkTopic   = "test-summaries"
)

var baseDate = time.Date(2023, time.May, 14, 10, 32, 0, 0, time.UTC)

func testConfig(broker string, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,

		NDWIThreshold:  0.0,
		MinWaterPixels: 10,
		SummaryMin:     -0.5,
		SummaryMax:     0.8,
		StatusModerate: 0.0,
		StatusCritical: 0.1,
	}
}

// makeScene synthesizes a 10x10 scene where the middle rows are a sediment-
// laden river channel (red above green, green above NIR) and the rest is
// vegetated land. 40 of 100 pixels classify as water with NDTI ≈ 0.23.
func makeScene(t *testing.T, river string, acquiredAt time.Time) []byte {
	t.Helper()

	const size = 10
	red := make([]float64, size*size)
	green := make([]float64, size*size)
	nir := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*size + x
			if y >= 3 && y < 7 {
				red[i], green[i], nir[i] = 0.16, 0.10, 0.03
			} else {
				red[i], green[i], nir[i] = 0.05, 0.08, 0.35
			}
		}
	}

	payload, err := json.Marshal(domain.RawSceneRecord{
		River:      river,
		AcquiredAt: acquiredAt,
		Width:      size,
		Height:     size,
		CloudCover: 8.0,
		Red:        red,
		Green:      green,
		NIR:        nir,
	})
	require.NoError(t, err)
	return payload
}

// makeDryScene synthesizes a scene with no water pixels at all.
func makeDryScene(t *testing.T, river string, acquiredAt time.Time) []byte {
	t.Helper()

	const size = 10
	red := make([]float64, size*size)
	green := make([]float64, size*size)
	nir := make([]float64, size*size)
	for i := range red {
		red[i], green[i], nir[i] = 0.05, 0.08, 0.35
	}

	payload, err := json.Marshal(domain.RawSceneRecord{
		River:      river,
		AcquiredAt: acquiredAt,
		Width:      size,
		Height:     size,
		Red:        red,
		Green:      green,
		NIR:        nir,
	})
	require.NoError(t, err)
	return payload
}

// summaryMessage holds a deserialized message read from the sink topic.
type summaryMessage struct {
	Summary domain.TurbiditySummary
	Key     string
	Headers map[string]string
}

// readSummary reads a single message from the sink consumer and deserializes it.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) summaryMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var summary domain.TurbiditySummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary), "unmarshal sink message")

	return summaryMessage{
		Summary: summary,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

func newTransformer(cfg *config.Config) (*pipeline.SceneTransformer, *domain.SeriesStore) {
	series := domain.NewSeriesStore()
	latest := domain.NewLatestRasters()
	metrics := observability.NewMetricsForTesting()
	return pipeline.NewTransformer(cfg, series, latest, nil, metrics, discardLogger()), series
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (loader) correctly round-trip a scene through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-reader")

	payload := makeScene(t, "pra-twifo-praso", baseDate)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("test-key"),
		Value: payload,
		Time:  baseDate,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("test-key"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	require.NoError(t, raw.Commit(ctx))

	// Transform the raw scene into a turbidity summary.
	transformer, _ := newTransformer(cfg)
	summary, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.TurbiditySummary{summary}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	sm := readSummary(ctx, t, consumer)
	assert.Equal(t, "pra-twifo-praso", sm.Headers["river"])
	assert.Equal(t, domain.StatusCritical, sm.Headers["status"])
	_, err = time.Parse(time.RFC3339, sm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, summary.SceneID, sm.Key, "sink messages keyed by scene ID")
	assert.Equal(t, "pra-twifo-praso", sm.Summary.River)
	assert.InDelta(t, 0.2308, sm.Summary.MeanTurbidity, 0.001)
	assert.Equal(t, 40, sm.Summary.WaterPixels)
	assert.Equal(t, domain.StatusCritical, sm.Summary.Status)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer → Writer)
// with real Kafka and verifies summaries land on the sink topic and the
// in-memory trend series fills in date order.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-pipeline")

	// Two rivers, three acquisitions each, published out of date order.
	rivers := []string{"pra-twifo-praso", "ankobra-prestea"}
	offsets := []int{10, 0, 5} // days after baseDate

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	var msgs []kafkago.Message
	for _, river := range rivers {
		for _, d := range offsets {
			msgs = append(msgs, kafkago.Message{
				Key:   []byte(fmt.Sprintf("%s-%d", river, d)),
				Value: makeScene(t, river, baseDate.AddDate(0, 0, d)),
				Time:  baseDate,
			})
		}
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer, series := newTransformer(cfg)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]summaryMessage, 0, len(msgs))
	for len(received) < len(msgs) {
		received = append(received, readSummary(ctx, t, consumer))
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Len(t, received, len(msgs))
	perRiver := map[string]int{}
	for _, sm := range received {
		perRiver[sm.Summary.River]++
		assert.Equal(t, domain.StatusCritical, sm.Summary.Status)
		assert.InDelta(t, 0.2308, sm.Summary.MeanTurbidity, 0.001)
		assert.NotEmpty(t, sm.Summary.SceneID, "scene ID must be generated when absent")
		assert.False(t, sm.Summary.ProcessedAt.IsZero())
	}
	assert.Equal(t, 3, perRiver["pra-twifo-praso"])
	assert.Equal(t, 3, perRiver["ankobra-prestea"])

	// The trend series must come out date-ascending despite out-of-order publishing.
	for _, river := range rivers {
		s := series.Get(river)
		require.NotNil(t, s, "series for %s", river)
		points := s.Points()
		require.Len(t, points, 3)
		for i := 1; i < len(points); i++ {
			assert.True(t, points[i].AcquiredAt.After(points[i-1].AcquiredAt),
				"%s series must be date-ascending", river)
		}
	}
}

// TestPipelineSkipsBadScenes verifies that a poison pill (invalid JSON) and a
// no-data scene (no water pixels) are skipped while a valid scene still flows
// through to the sink topic.
func TestPipelineSkipsBadScenes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-poison")

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{"), Time: baseDate},
		kafkago.Message{Key: []byte("dry"), Value: makeDryScene(t, "pra-twifo-praso", baseDate), Time: baseDate},
		kafkago.Message{Key: []byte("good"), Value: makeScene(t, "pra-twifo-praso", baseDate.AddDate(0, 0, 1)), Time: baseDate},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer, series := newTransformer(cfg)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	sm := readSummary(ctx, t, consumer)
	assert.Equal(t, "pra-twifo-praso", sm.Summary.River)
	assert.Equal(t, domain.StatusCritical, sm.Summary.Status)

	// Verify no second message arrives: both bad scenes were skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	// The no-data date must be absent from the trend series, not zero.
	s := series.Get("pra-twifo-praso")
	require.NotNil(t, s)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, baseDate.AddDate(0, 0, 1), s.Points()[0].AcquiredAt)

	pipelineCancel()
	require.NoError(t, <-errCh)
}
