// internal/service/export_test.go
// 外部テストパッケージ(service_test)から未公開識別子へアクセスするための橋渡し。
// service/mocks が service を import するため、テストは外部パッケージに置く必要がある。
package service

// CalculateProgressForTest は calculateProgress を外部テストパッケージへ公開します。
var CalculateProgressForTest = calculateProgress

// NewMailNotifierForTest は mailer フィールドを指定して MailNotifier を構築します。
func NewMailNotifierForTest(m Mailer) *MailNotifier {
	return &MailNotifier{mailer: m}
}

// MailerForTest は MailNotifier の mailer フィールドを返します。
func (n *MailNotifier) MailerForTest() Mailer {
	return n.mailer
}
