package tax

import (
	"testing"

	"github.com/sterlingtax/cryptotax-backend/internal/model"
)

func TestRemoveGiftDuplicates(t *testing.T) {
	t.Run("deposit doubling a gift received is dropped", func(t *testing.T) {
		gift := buyTx(model.TypeGiftReceived, day(1), "BTC", "1", "100")
		dupe := buyTx(model.TypeDeposit, day(1), "BTC", "1", "100")
		dupe.Timestamp = gift.Timestamp

		kept, warnings := RemoveGiftDuplicates([]model.Transaction{gift, dupe})

		if len(kept) != 1 {
			t.Fatalf("expected 1 transaction, got %d", len(kept))
		}
		if kept[0].Type != model.TypeGiftReceived {
			t.Errorf("the gift must survive, kept %s", kept[0].Type)
		}
		if len(warnings) != 1 || warnings[0].Kind != WarnDuplicateRemoved {
			t.Errorf("expected a duplicate-removed warning, got %+v", warnings)
		}
	})

	t.Run("withdrawal doubling a spend is dropped", func(t *testing.T) {
		spend := sellTx(model.TypeSpend, day(2), "ETH", "3", "30")
		dupe := sellTx(model.TypeWithdrawal, day(2), "ETH", "3.000000005", "30")
		dupe.Timestamp = spend.Timestamp

		kept, _ := RemoveGiftDuplicates([]model.Transaction{dupe, spend})

		if len(kept) != 1 || kept[0].Type != model.TypeSpend {
			t.Fatalf("expected only the spend to survive, got %+v", kept)
		}
	})

	t.Run("different timestamps are not duplicates", func(t *testing.T) {
		gift := buyTx(model.TypeGiftReceived, day(1), "BTC", "1", "100")
		deposit := buyTx(model.TypeDeposit, day(2), "BTC", "1", "100")

		kept, warnings := RemoveGiftDuplicates([]model.Transaction{gift, deposit})

		if len(kept) != 2 || len(warnings) != 0 {
			t.Errorf("expected both kept, got %d with warnings %+v", len(kept), warnings)
		}
	})

	t.Run("quantity outside tolerance is not a duplicate", func(t *testing.T) {
		gift := buyTx(model.TypeGiftReceived, day(1), "BTC", "1", "100")
		deposit := buyTx(model.TypeDeposit, day(1), "BTC", "1.001", "100")
		deposit.Timestamp = gift.Timestamp

		kept, _ := RemoveGiftDuplicates([]model.Transaction{gift, deposit})

		if len(kept) != 2 {
			t.Errorf("expected both kept, got %d", len(kept))
		}
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		gift := buyTx(model.TypeGiftReceived, day(1), "BTC", "1", "100")
		dupe := buyTx(model.TypeDeposit, day(1), "BTC", "1", "100")
		dupe.Timestamp = gift.Timestamp
		input := []model.Transaction{gift, dupe}

		_, _ = RemoveGiftDuplicates(input)

		if len(input) != 2 {
			t.Error("input slice length changed")
		}
	})
}
