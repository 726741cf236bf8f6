// Package users holds the user record model and the record store.
//
// The store keeps an ordered list of records. New records get the identifier
// len(list)+1, so identifiers are 1-based and follow insertion order as long
// as nothing is ever removed.
//
// BlobRepository persists the list as a single JSON array through a
// storage.Storage backend; with the file backend this is the classic
// "JSON file as database":
//
//	st, _ := file.New("data")
//	repo := users.NewBlobRepository(st, users.WithKey("users.json"))
//	id, err := repo.Append(ctx, users.Candidate{Name: "Ada"})
//
// The sqlite and postgres subpackages provide transactional implementations
// of the same Repository interface.
package users
