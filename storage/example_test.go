package storage_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ggoodman/mcp-userdir/storage"
	"github.com/ggoodman/mcp-userdir/storage/file"
	"github.com/ggoodman/mcp-userdir/storage/memory"
)

func Example() {
	ctx := context.Background()
	store := memory.New()
	defer store.Close()

	if err := store.Set(ctx, "users.json", []byte(`[]`)); err != nil {
		log.Fatal(err)
	}
	item, err := store.Get(ctx, "users.json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("stored: %s\n", item.Data)

	missing, _ := store.Get(ctx, "other.json")
	fmt.Println("missing is nil:", missing == nil)
	// Output:
	// stored: []
	// missing is nil: true
}

func ExampleUpdater() {
	ctx := context.Background()
	var st storage.Storage = memory.New()

	// Backends that can read-modify-write atomically implement Updater.
	up, ok := st.(storage.Updater)
	if !ok {
		log.Fatal("memory storage should implement Updater")
	}
	for i := 0; i < 3; i++ {
		err := up.Update(ctx, "counter", func(current []byte) ([]byte, error) {
			return append(current, '+'), nil
		})
		if err != nil {
			log.Fatal(err)
		}
	}
	item, _ := st.Get(ctx, "counter")
	fmt.Println(string(item.Data))
	// Output:
	// +++
}

func Example_file() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "storage-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	var st storage.Storage
	st, err = file.New(dir)
	if err != nil {
		log.Fatal(err)
	}
	_, isUpdater := st.(storage.Updater)
	fmt.Println("atomic updates:", isUpdater)

	if err := st.Set(ctx, "data/users.json", []byte(`[{"id":1}]`)); err != nil {
		log.Fatal(err)
	}
	item, _ := st.Get(ctx, "data/users.json")
	fmt.Printf("%s\n", item.Data)
	// Output:
	// atomic updates: false
	// [{"id":1}]
}
