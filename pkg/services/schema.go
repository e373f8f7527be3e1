package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/repositories"
)

// SchemaService introspects an organization's external database into the
// normalized representation the prompt formatter consumes.
type SchemaService interface {
	// Introspect resolves the connection, lists tables, then lists columns
	// per table. An organization with zero tables yields an empty schema,
	// not an error.
	Introspect(ctx context.Context, orgID int64) (*models.NormalizedSchema, error)
}

type schemaService struct {
	resolver ConnectionResolver
	adapters dialect.AdapterFactory
	cache    repositories.SchemaCacheRepository // nil disables write-through
	logger   *zap.Logger
}

// NewSchemaService creates a SchemaService. cache may be nil; when set,
// each introspection writes the discovered metadata through to the admin
// store and picks up any human-written descriptions kept there.
func NewSchemaService(
	resolver ConnectionResolver,
	adapters dialect.AdapterFactory,
	cache repositories.SchemaCacheRepository,
	logger *zap.Logger,
) SchemaService {
	return &schemaService{
		resolver: resolver,
		adapters: adapters,
		cache:    cache,
		logger:   logger,
	}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) Introspect(ctx context.Context, orgID int64) (*models.NormalizedSchema, error) {
	profile, err := s.resolver.Resolve(ctx, orgID)
	if err != nil {
		return nil, err
	}

	reader, err := s.adapters.NewSchemaReader(ctx, profile.Dialect, profile.Bundle, orgID)
	if err != nil {
		return nil, fmt.Errorf("create schema reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			s.logger.Warn("failed to close schema reader",
				zap.Int64("orgID", orgID),
				zap.Error(closeErr))
		}
	}()

	tableNames, err := reader.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables for org %d: %w", orgID, err)
	}

	schema := &models.NormalizedSchema{OrgID: orgID, Tables: []models.TableDescriptor{}}
	for _, name := range tableNames {
		columns, err := reader.ListColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list columns for %s: %w", name, err)
		}

		table := models.TableDescriptor{
			Name:        name,
			Description: defaultTableDescription(name),
		}
		for _, col := range columns {
			table.Columns = append(table.Columns, models.ColumnDescriptor{
				Name:         col.Name,
				NativeType:   col.DataType,
				IsSearchable: true,
			})
		}
		schema.Tables = append(schema.Tables, table)
	}

	if s.cache != nil {
		s.mergeCachedMetadata(ctx, schema)
	}

	return schema, nil
}

// mergeCachedMetadata writes the fresh schema through to the admin store
// and folds back cached IDs and human-written descriptions. Cache failures
// degrade to the live schema; they never fail the introspection.
func (s *schemaService) mergeCachedMetadata(ctx context.Context, schema *models.NormalizedSchema) {
	if err := s.cache.ReplaceSchema(ctx, schema.OrgID, schema.Tables); err != nil {
		s.logger.Warn("schema cache write-through failed",
			zap.Int64("orgID", schema.OrgID),
			zap.Error(err))
		return
	}

	cached, err := s.cache.GetSchema(ctx, schema.OrgID)
	if err != nil {
		s.logger.Warn("schema cache read-back failed",
			zap.Int64("orgID", schema.OrgID),
			zap.Error(err))
		return
	}

	byName := make(map[string]models.TableDescriptor, len(cached))
	for _, t := range cached {
		byName[t.Name] = t
	}

	for i := range schema.Tables {
		cachedTable, ok := byName[schema.Tables[i].Name]
		if !ok {
			continue
		}
		schema.Tables[i].ID = cachedTable.ID
		if cachedTable.Description != "" {
			schema.Tables[i].Description = cachedTable.Description
		}

		cachedCols := make(map[string]models.ColumnDescriptor, len(cachedTable.Columns))
		for _, c := range cachedTable.Columns {
			cachedCols[c.Name] = c
		}
		for j := range schema.Tables[i].Columns {
			if cc, ok := cachedCols[schema.Tables[i].Columns[j].Name]; ok && cc.Description != "" {
				schema.Tables[i].Columns[j].Description = cc.Description
			}
		}
	}
}

// defaultTableDescription derives a readable placeholder from the table
// name, e.g. USER_ACCOUNTS -> "Contains user account records".
func defaultTableDescription(tableName string) string {
	readable := strings.ReplaceAll(strings.ToLower(tableName), "_", " ")
	return fmt.Sprintf("Contains %s records", inflection.Singular(readable))
}
