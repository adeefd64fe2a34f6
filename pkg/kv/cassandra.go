package kv

import (
	"context"
	"fmt"
	"iter"

	"github.com/gocql/gocql"
)

// CassandraStore is the networked, horizontally-scaled backend for
// deployments that outgrow a single process. Grounded on the pack's only
// gocql usage (transaction_logger.go's *gocql.Session-backed log) and on
// spec §6's table layout: one CQL table clustered descending by
// (key, ts) so the newest version of a key sorts first.
type CassandraStore struct {
	session *gocql.Session
}

// OpenCassandraStore connects to a Cassandra cluster at the given hosts
// and ensures the keyspace/table this store needs exist.
func OpenCassandraStore(hosts []string, keyspace string) (*CassandraStore, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Keyspace = "system"

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra: %w", err)
	}
	defer bootstrap.Close()

	createKeyspace := fmt.Sprintf(`
		CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}
	`, keyspace)
	if err := bootstrap.Query(createKeyspace).Exec(); err != nil {
		return nil, fmt.Errorf("create cassandra keyspace: %w", err)
	}

	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("open cassandra session: %w", err)
	}

	createTable := `
		CREATE TABLE IF NOT EXISTS zflow_kv_versions (
			namespace text,
			key       blob,
			ts        bigint,
			value     blob,
			PRIMARY KEY (namespace, key, ts)
		) WITH CLUSTERING ORDER BY (key DESC, ts DESC)
	`
	if err := session.Query(createTable).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("create cassandra table: %w", err)
	}

	return &CassandraStore{session: session}, nil
}

// Close releases the underlying Cassandra session.
func (s *CassandraStore) Close() { s.session.Close() }

func (s *CassandraStore) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	err := s.session.Query(`
		INSERT INTO zflow_kv_versions (namespace, key, ts, value) VALUES (?, ?, ?, ?)
	`, ns, key, int64(ts), value).WithContext(ctx).Exec()
	if err != nil {
		return wrapIOError("put", ns, err)
	}
	return nil
}

func (s *CassandraStore) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	var (
		value []byte
		err   error
	)
	if before == nil {
		err = s.session.Query(`
			SELECT value FROM zflow_kv_versions WHERE namespace = ? AND key = ? ORDER BY ts DESC LIMIT 1
		`, ns, key).WithContext(ctx).Scan(&value)
	} else {
		err = s.session.Query(`
			SELECT value FROM zflow_kv_versions WHERE namespace = ? AND key = ? AND ts <= ? ORDER BY ts DESC LIMIT 1 ALLOW FILTERING
		`, ns, key, int64(*before)).WithContext(ctx).Scan(&value)
	}
	switch {
	case err == gocql.ErrNotFound:
		return nil, false, nil
	case err != nil:
		return nil, false, wrapIOError("getLatest", ns, err)
	default:
		return value, true, nil
	}
}

func (s *CassandraStore) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	var ts int64
	err := s.session.Query(`
		SELECT ts FROM zflow_kv_versions WHERE namespace = ? AND key = ? ORDER BY ts DESC LIMIT 1
	`, ns, key).WithContext(ctx).Scan(&ts)
	switch {
	case err == gocql.ErrNotFound:
		return 0, false, nil
	case err != nil:
		return 0, false, wrapIOError("getLatestTimestamp", ns, err)
	default:
		return uint64(ts), true, nil
	}
}

func (s *CassandraStore) GetAllTimestamps(ctx context.Context, ns string, key []byte) (iter.Seq[uint64], error) {
	iter := s.session.Query(`
		SELECT ts FROM zflow_kv_versions WHERE namespace = ? AND key = ? ORDER BY ts DESC
	`, ns, key).WithContext(ctx).Iter()

	return func(yield func(uint64) bool) {
		defer iter.Close()
		var ts int64
		for iter.Scan(&ts) {
			if !yield(uint64(ts)) {
				return
			}
		}
	}, nil
}

func (s *CassandraStore) ScanAll(ctx context.Context, ns string) (iter.Seq2[[]byte, []byte], error) {
	keysSeq, err := s.ScanAllKeys(ctx, ns)
	if err != nil {
		return nil, err
	}

	return func(yield func([]byte, []byte) bool) {
		for key := range keysSeq {
			value, ok, err := s.GetLatest(ctx, ns, key, nil)
			if err != nil || !ok {
				continue
			}
			if !yield(key, value) {
				return
			}
		}
	}, nil
}

func (s *CassandraStore) ScanAllKeys(ctx context.Context, ns string) (iter.Seq[[]byte], error) {
	cqlIter := s.session.Query(`
		SELECT DISTINCT namespace, key FROM zflow_kv_versions WHERE namespace = ?
	`, ns).WithContext(ctx).Iter()

	return func(yield func([]byte) bool) {
		defer cqlIter.Close()
		var (
			rowNS string
			key   []byte
		)
		for cqlIter.Scan(&rowNS, &key) {
			if !yield(key) {
				return
			}
		}
	}, nil
}

func (s *CassandraStore) Delete(ctx context.Context, ns string, key []byte, marker *uint64) error {
	if marker == nil {
		err := s.session.Query(`
			DELETE FROM zflow_kv_versions WHERE namespace = ? AND key = ?
		`, ns, key).WithContext(ctx).Exec()
		return wrapIOError("delete", ns, err)
	}

	scan := s.session.Query(`
		SELECT ts FROM zflow_kv_versions WHERE namespace = ? AND key = ? AND ts <= ? ORDER BY ts DESC ALLOW FILTERING
	`, ns, key, int64(*marker)).WithContext(ctx).Iter()

	var (
		ts         int64
		timestamps []int64
	)
	for scan.Scan(&ts) {
		timestamps = append(timestamps, ts)
	}
	if err := scan.Close(); err != nil {
		return wrapIOError("delete", ns, err)
	}
	if len(timestamps) <= 1 {
		return nil
	}

	// timestamps[0] is the largest (descending order) and is retained.
	batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, drop := range timestamps[1:] {
		batch.Query(`DELETE FROM zflow_kv_versions WHERE namespace = ? AND key = ? AND ts = ?`, ns, key, drop)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return wrapIOError("delete", ns, err)
	}
	return nil
}
