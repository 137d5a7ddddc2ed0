package app

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Batch is one aggregation window worth of anonymized battles.
type Batch struct {
	Battles []*Battle
}

type clickHouseRow struct {
	RunID        string `json:"run_id"`
	BattleNumber uint64 `json:"battle_number"`
	Format       string `json:"format"`
	Log          string `json:"log"`
}

// WriteJSONEachRow renders the batch as a ClickHouse INSERT query.
// Pseudonyms are only comparable within a run, hence the run id on every row.
func (b *Batch) WriteJSONEachRow(buf *bytes.Buffer, tableName, runID string) error {
	fmt.Fprintf(buf, "INSERT INTO %s FORMAT JSONEachRow\n", tableName)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, battle := range b.Battles {
		if err := enc.Encode(clickHouseRow{
			RunID:        runID,
			BattleNumber: battle.Number,
			Format:       battle.Format,
			Log:          battle.Anonymized,
		}); err != nil {
			return err
		}
	}
	return nil
}

type Aggregator struct {
	batch Batch
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (agg *Aggregator) AppendRecord(b *Battle) error {
	agg.batch.Battles = append(agg.batch.Battles, b)
	return nil
}

func (agg *Aggregator) Aggregate() *Batch {
	return &agg.batch
}
