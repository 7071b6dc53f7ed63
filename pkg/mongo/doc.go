// Package mongo provides MongoDB connection management and the index helpers the membership store
// relies on for its uniqueness guarantees.
//
// Configuration is environment-driven (MONGODB_* variables, see Config). New connects with retries and
// verifies the connection with a ping; NewWithDatabase also resolves the database name, taking it from
// the connection URL when none is given explicitly.
//
// # Usage
//
//	cfg := mongo.Config{ConnectionURL: "mongodb://localhost:27017/membership"}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = mongo.EnsureIndexes(ctx, db.Collection("webpages_Role"),
//		mongo.Index{Fields: []string{"RoleName"}, Unique: true},
//	)
//
//	health := mongo.Healthcheck(db.Client())
//	if err := health(ctx); err != nil {
//		log.Println("mongo is unavailable:", err)
//	}
//
// # Error Handling
//
// Connection failures are joined with ErrFailedToConnectToMongo. IsDuplicateKey and IsNoDocuments
// classify driver errors without leaking driver types into callers.
//
// # See Also
//
// Documentation for the official driver: https://pkg.go.dev/go.mongodb.org/mongo-driver/v2.
package mongo
