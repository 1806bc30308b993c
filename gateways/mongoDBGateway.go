package gateways

import (
	"context"
	"time"

	l1common "finco/conversions/common"
	"finco/conversions/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

// ConnectDB creates a MongoDB client
func ConnectDB() *l1common.Database {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(l1common.GloabalENVVars.MongoDbConnectionString))
	if err != nil {
		log.Fatal(errors.BuildErrMsg(errors.DBInitializationError, err))
	}
	err = c.Ping(ctx, nil)
	if err != nil {
		log.Fatal("error Ping DB: ", errors.BuildErrMsg(errors.DBConnectionError, err))
	}

	var databaseCollections l1common.Database
	database := c.Database(l1common.GloabalENVVars.MongoDatabase)
	databaseCollections.Users = database.Collection(l1common.GloabalENVVars.UsersCollection)
	databaseCollections.Transactions = database.Collection(l1common.GloabalENVVars.TransactionsCollection)

	for collection, key := range map[*mongo.Collection]string{
		databaseCollections.Users:        "fid",
		databaseCollections.Transactions: "bizId",
	} {
		mod := mongo.IndexModel{
			Keys:    bson.M{key: 1},
			Options: options.Index().SetUnique(true),
		}
		_, err = collection.Indexes().CreateOne(ctx, mod)
		if err != nil {
			log.Fatal(errors.BuildErrMsg(errors.DBConfigurationError, err))
		}
	}

	return &databaseCollections
}

// MongoStore is the durable record of users and conversion attempts.
type MongoStore struct {
	db *l1common.Database
}

func NewMongoStore(db *l1common.Database) *MongoStore {
	return &MongoStore{db: db}
}

// UpsertUser syncs the identity record at login, keyed by platform id.
// Created on first login, updated on reconnection, never deleted.
func (s *MongoStore) UpsertUser(ctx context.Context, fid, custodyAddress, signerAddress string) (l1common.User, error) {
	now := time.Now().UTC()

	set := bson.M{"updatedAt": now}
	if custodyAddress != "" {
		set["custodyAddress"] = custodyAddress
	}
	if signerAddress != "" {
		set["signerAddress"] = signerAddress
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"fid":       fid,
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user l1common.User
	err := s.db.Users.FindOneAndUpdate(ctx, bson.M{"fid": fid}, update, opts).Decode(&user)
	if err != nil {
		return user, errors.BuildAndLogErrorMsg(errors.WriteUserError, err)
	}

	return user, nil
}

// FindUser reads one user by platform id.
func (s *MongoStore) FindUser(ctx context.Context, fid string) (l1common.User, error) {
	var user l1common.User
	err := s.db.Users.FindOne(ctx, bson.M{"fid": fid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return user, errors.New(errors.UserNotFoundError)
	}
	if err != nil {
		return user, errors.BuildAndLogErrorMsg(errors.ReadUserError, err)
	}
	return user, nil
}

// SetStripeAccount attaches the fiat payout account id to a user.
func (s *MongoStore) SetStripeAccount(ctx context.Context, fid, accountId string) error {
	update := bson.M{"$set": bson.M{"stripeAccountId": accountId, "updatedAt": time.Now().UTC()}}
	_, err := s.db.Users.UpdateOne(ctx, bson.M{"fid": fid}, update)
	if err != nil {
		return errors.BuildAndLogErrorMsg(errors.WriteUserError, err)
	}
	return nil
}

// InsertTransaction appends one conversion attempt to the ledger.
func (s *MongoStore) InsertTransaction(ctx context.Context, tx l1common.Transaction) error {
	_, err := s.db.Transactions.InsertOne(ctx, tx)
	if err != nil {
		return errors.BuildAndLogErrorMsg(errors.WriteTxError, err)
	}
	return nil
}

// FindTransaction reads one ledger row by business id.
func (s *MongoStore) FindTransaction(ctx context.Context, bizId string) (l1common.Transaction, error) {
	var tx l1common.Transaction
	err := s.db.Transactions.FindOne(ctx, bson.M{"bizId": bizId}).Decode(&tx)
	if err != nil {
		return tx, errors.BuildAndLogErrorMsg(errors.ReadTxError, err)
	}
	return tx, nil
}

// FindTransactionByHash reads the newest ledger row carrying the given chain
// tx hash for a user. Used to keep payouts at most once per attempt.
func (s *MongoStore) FindTransactionByHash(ctx context.Context, fid, chainTxHash string) (l1common.Transaction, bool, error) {
	var tx l1common.Transaction

	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	err := s.db.Transactions.FindOne(ctx, bson.M{"fid": fid, "chainTxHash": chainTxHash}, opts).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return tx, false, nil
	}
	if err != nil {
		return tx, false, errors.BuildAndLogErrorMsg(errors.ReadTxError, err)
	}
	return tx, true, nil
}

// RecentTransactions returns the newest rows for a user, newest first.
func (s *MongoStore) RecentTransactions(ctx context.Context, fid string, limit int64) ([]l1common.Transaction, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)

	curres, err := s.db.Transactions.Find(ctx, bson.M{"fid": fid}, opts)
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.ReadTxError, err)
	}
	defer curres.Close(ctx)

	var res []l1common.Transaction
	for curres.Next(ctx) {
		var tx l1common.Transaction
		if err := curres.Decode(&tx); err != nil {
			log.Error(err)
			continue
		}
		res = append(res, tx)
	}

	return res, nil
}

// AdvanceStatus moves a row from one expected status to the next. The
// expectation sits inside the filter, so two concurrent callers racing on the
// same transition see exactly one winner and terminal rows are never
// rewritten. Returns false when the row was not in the expected status (or
// missing). A PENDING expectation also matches the legacy aliases.
func (s *MongoStore) AdvanceStatus(ctx context.Context, bizId, from, to string) (bool, error) {
	if l1common.IsTerminalStatus(from) {
		return false, nil
	}

	allowed := bson.A{from}
	if from == l1common.TxPending {
		allowed = bson.A{l1common.TxPending, l1common.TxInit, l1common.TxBridging}
	}

	filter := bson.M{
		"bizId":  bizId,
		"status": bson.M{"$in": allowed},
	}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	res, err := s.db.Transactions.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.BuildAndLogErrorMsg(errors.UpdateTxError, err)
	}

	if res.MatchedCount == 0 {
		return false, nil
	}
	log.Info("updated DB for: ", bizId)
	return true, nil
}

// SetChainTxHash records the submitted hash on a still-pending row.
func (s *MongoStore) SetChainTxHash(ctx context.Context, bizId, chainTxHash string) error {
	filter := bson.M{
		"bizId":  bizId,
		"status": bson.M{"$nin": bson.A{l1common.TxCompleted, l1common.TxFailed}},
	}
	update := bson.M{"$set": bson.M{"chainTxHash": chainTxHash, "updatedAt": time.Now().UTC()}}
	_, err := s.db.Transactions.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.BuildAndLogErrorMsg(errors.UpdateTxError, err)
	}
	return nil
}

// SetTransfer records the payout result: transfer id plus the terminal
// status. Only the PROCESSING row that won the payout transition may be
// finalized, so a racing attempt can never overwrite the outcome.
func (s *MongoStore) SetTransfer(ctx context.Context, bizId, transferId, status string) (bool, error) {
	filter := bson.M{
		"bizId":  bizId,
		"status": l1common.TxProcessing,
	}
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if transferId != "" {
		set["transferId"] = transferId
	}

	res, err := s.db.Transactions.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, errors.BuildAndLogErrorMsg(errors.UpdateTxError, err)
	}
	return res.MatchedCount > 0, nil
}
