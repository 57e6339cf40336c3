package events

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestProcessedStoreDedupes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)

	rows := pgxmock.NewRows([]string{"?column?"})
	mock.ExpectQuery("SELECT 1 FROM processed_messages").
		WithArgs("sms", "msg-1").
		WillReturnRows(rows)

	seen, err := store.AlreadyProcessed(context.Background(), "sms", "msg-1")
	if err != nil {
		t.Fatalf("AlreadyProcessed failed: %v", err)
	}
	if seen {
		t.Fatal("expected unseen message")
	}

	mock.ExpectExec("INSERT INTO processed_messages").
		WithArgs("sms", "msg-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	fresh, err := store.MarkProcessed(context.Background(), "sms", "msg-1")
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if !fresh {
		t.Fatal("expected first insert to report fresh")
	}

	mock.ExpectExec("INSERT INTO processed_messages").
		WithArgs("sms", "msg-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	fresh, err = store.MarkProcessed(context.Background(), "sms", "msg-1")
	if err != nil {
		t.Fatalf("MarkProcessed repeat failed: %v", err)
	}
	if fresh {
		t.Fatal("expected duplicate insert to report not fresh")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
