package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/storage"
)

const accountKey = "user_id"

// itemSet marshals owned items as a DynamoDB string set, so ADD performs a set union.
type itemSet []string

func (s itemSet) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberSS{Value: s}, nil
}

func accountKeyAV(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		accountKey: &types.AttributeValueMemberS{Value: userID},
	}
}

// CreateAccount creates a new account record in DynamoDB.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	accountAV, err := attributevalue.MarshalMap(account)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.AccountsTableName),
		Item:                accountAV,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"), // Prevent overwriting existing accounts.
	}

	_, err = s.Client.PutItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil, fmt.Errorf("account for user ID %s: %w", account.UserId, storage.ErrAccountExists)
		}
		return nil, fmt.Errorf("failed to create account in DynamoDB: %w", err)
	}

	return account, nil
}

// DeleteAccount deletes an account record from DynamoDB.
func (s *Store) DeleteAccount(ctx context.Context, userID string) error {
	input := &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.AccountsTableName),
		Key:                 accountKeyAV(userID),
		ConditionExpression: aws.String("attribute_exists(user_id)"),
	}

	_, err := s.Client.DeleteItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("account for user ID %s: %w", userID, storage.ErrAccountNotFound)
		}
		return fmt.Errorf("failed to delete account from DynamoDB: %w", err)
	}

	return nil
}

// GetAccount retrieves an account from DynamoDB by its user ID.
func (s *Store) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.AccountsTableName),
		Key:            accountKeyAV(userID),
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get account from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("account for user ID %s: %w", userID, storage.ErrAccountNotFound)
	}

	var account models.Account
	if err := attributevalue.UnmarshalMap(result.Item, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

// ListAccounts retrieves all accounts from DynamoDB.
func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.AccountsTableName),
	}

	var accounts []models.Account
	for {
		result, err := s.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accounts table: %w", err)
		}

		var page []models.Account
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
		}
		accounts = append(accounts, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return accounts, nil
}

// ApplyUpdate writes one account's pending changes in a single UpdateItem call.
func (s *Store) ApplyUpdate(ctx context.Context, update models.Update) error {
	if update.Empty() {
		return nil
	}

	expr, err := buildUpdateExpression(update.Set, update.Increments, update.AddItems)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.AccountsTableName),
		Key:                       accountKeyAV(update.AccountID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	_, err = s.Client.UpdateItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return fmt.Errorf("account for user ID %s: %w", update.AccountID, storage.ErrAccountNotFound)
		}
		return fmt.Errorf("failed to update account in DynamoDB: %w", err)
	}

	return nil
}

// CommitTransfer debits the agent and credits the target in one TransactWriteItems call.
// The transfer ID doubles as the client request token, so a retried commit is applied once.
func (s *Store) CommitTransfer(ctx context.Context, transfer models.Transfer) error {
	// Concurrent transfers from one agent must not overdraw the agency balance.
	sufficient := expression.Name(string(models.FieldAgencyBalance)).GreaterThanEqual(expression.Value(transfer.Amount))
	agentExpr, err := buildUpdateExpression(nil, map[models.Field]int64{
		models.FieldAgencyBalance: -transfer.Amount,
	}, nil, sufficient)
	if err != nil {
		return fmt.Errorf("failed to build agent update: %w", err)
	}
	targetExpr, err := buildUpdateExpression(nil, map[models.Field]int64{
		models.FieldCoins:          transfer.Amount,
		models.FieldRechargePoints: transfer.Amount,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to build target update: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		ClientRequestToken: aws.String(transfer.Id),
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Debit the agent's agency balance.
				Update: &types.Update{
					TableName:                 aws.String(s.AccountsTableName),
					Key:                       accountKeyAV(transfer.AgentId),
					UpdateExpression:          agentExpr.Update(),
					ConditionExpression:       agentExpr.Condition(),
					ExpressionAttributeNames:  agentExpr.Names(),
					ExpressionAttributeValues: agentExpr.Values(),
				},
			},
			{
				// Operation 2: Credit the target's coins and recharge points.
				Update: &types.Update{
					TableName:                 aws.String(s.AccountsTableName),
					Key:                       accountKeyAV(transfer.TargetId),
					UpdateExpression:          targetExpr.Update(),
					ConditionExpression:       targetExpr.Condition(),
					ExpressionAttributeNames:  targetExpr.Names(),
					ExpressionAttributeValues: targetExpr.Values(),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var txc *types.TransactionCanceledException
		if errors.As(err, &txc) {
			for i, reason := range txc.CancellationReasons {
				if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
					continue
				}
				if i == 0 {
					return fmt.Errorf("transfer %s: %w (agent %s missing or agency balance below %d)",
						transfer.Id, storage.ErrTransferRejected, transfer.AgentId, transfer.Amount)
				}
				return fmt.Errorf("transfer %s: %w (target %s missing)", transfer.Id, storage.ErrTransferRejected, transfer.TargetId)
			}
			return fmt.Errorf("transfer %s: %w: %v", transfer.Id, storage.ErrTransferRejected, err)
		}
		return fmt.Errorf("failed to execute transfer transaction: %w", err)
	}

	return nil
}

// buildUpdateExpression renders absolute fields as SET, counters and owned
// items as ADD, guarded by the account's existence and any extra guards. Fields are emitted in a
// stable order so identical updates render identical expressions.
func buildUpdateExpression(set models.Patch, increments map[models.Field]int64, addItems []string, guards ...expression.ConditionBuilder) (expression.Expression, error) {
	var update expression.UpdateBuilder

	for _, f := range sortedFields(set) {
		update = update.Set(expression.Name(string(f)), expression.Value(set[f]))
	}
	for _, f := range sortedFields(increments) {
		update = update.Add(expression.Name(string(f)), expression.Value(increments[f]))
	}
	if len(addItems) > 0 {
		update = update.Add(expression.Name(string(models.FieldOwnedItems)), expression.Value(itemSet(addItems)))
	}

	cond := expression.AttributeExists(expression.Name(accountKey))
	if len(guards) > 0 {
		cond = cond.And(guards[0], guards[1:]...)
	}
	return expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
}

func sortedFields[V any](m map[models.Field]V) []models.Field {
	fields := make([]models.Field, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}
