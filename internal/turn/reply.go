package turn

import (
	"fmt"
	"strings"

	"github.com/kristentruong11/sun11this/internal/kb"
)

// Fixed assistant reply texts. These are product copy carried verbatim; do
// not reflow or "improve" the wording.

const (
	refusalReply = "⚠️ Mình không thể hỗ trợ yêu cầu này vì lý do an toàn hoặc đạo đức.\n\n" +
		"Mình có thể giúp bạn hiểu nguyên tắc chung hoặc hướng tìm trợ giúp phù hợp nếu bạn cần. 🙏"

	refusalTitle = "Yêu cầu không phù hợp"

	financialReply = `📊 **Nguyên tắc chung về đầu tư:**

1. **Đa dạng hóa:** Không bỏ hết vào một kênh duy nhất
2. **Hiểu rủi ro:** Lợi nhuận cao thường đi kèm rủi ro cao
3. **Kỳ hạn phù hợp:** Ngắn hạn (tiết kiệm), trung hạn (trái phiếu), dài hạn (cổ phiếu/BĐS)
4. **Học hỏi:** Tìm hiểu kỹ trước khi quyết định
5. **Quỹ khẩn cấp:** Giữ 3-6 tháng chi phí sinh hoạt trước khi đầu tư

*⚠️ Lưu ý: Đây không phải tư vấn tài chính cá nhân hóa. Hãy tự đánh giá rủi ro hoặc tham khảo chuyên gia tài chính có chứng chỉ trước khi quyết định.*

**Nguồn tham khảo:**
- [Hướng dẫn đầu tư cơ bản - SSI](https://www.ssi.com.vn)
- [Kiến thức tài chính - SBV](https://www.sbv.gov.vn)`

	askForLessonReply = "Cậu muốn học **Bài số mấy, Lớp mấy**? Ví dụ: `Bài 1 Lớp 10` hoặc nhập tên bài học nhé!"

	selectLessonFirstReply = `Vui lòng chọn một bài học trước. Ví dụ: "Giải thích cho tôi về Bài 1 Lớp 10"`

	imageUnavailableReply = "Xin lỗi, không thể tạo ảnh lúc này. Vui lòng thử lại. 🙏"

	emptyModelReply = "Xin lỗi, chưa có câu trả lời. Vui lòng thử lại."
)

func notFoundReply(lesson, grade int) string {
	return fmt.Sprintf("Xin lỗi, không tìm thấy **Bài %d (Lớp %d)** trong ngân hàng kiến thức. 😅\n\n"+
		"Cậu có thể thử bài khác không?", lesson, grade)
}

func noTrueFalseReply(lesson int) string {
	return fmt.Sprintf("Xin lỗi, **Bài %d** chưa có câu đúng-sai trong hệ thống. 📚\n\n"+
		"Cậu có thể thử các tính năng khác nhé!", lesson)
}

func errorReply(err error) string {
	return fmt.Sprintf("Xin lỗi, có lỗi xảy ra: %v", err)
}

func suggestionsReply(matches []kb.LessonDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mình tìm thấy %d bài học phù hợp:\n\n", len(matches))
	for i, doc := range matches {
		fmt.Fprintf(&b, "%d. **Bài %d (Lớp %d)** — %s\n\n", i+1, doc.Lesson, doc.Grade, doc.Title)
	}
	b.WriteString("\nCậu hãy chọn một bài bằng cách nhập \"Bài X Lớp Y\" nhé!")
	return b.String()
}

// trueFalseBatchReply formats one page of true/false items. start is the
// zero-based cursor of the first item shown; shownSoFar counts items seen
// including this page, total is the full item count for the lesson.
func trueFalseBatchReply(doc *kb.LessonDoc, items []kb.TrueFalseItem, start, shownSoFar, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Đây là %d câu đúng-sai từ **Bài %d: %s** 📝\n\n", len(items), doc.Lesson, doc.Title)
	fmt.Fprintf(&b, "*(Đã xem %d/%d câu)*\n\n", shownSoFar, total)

	for i, q := range items {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}

		number := q.Number
		if number == "" {
			number = fmt.Sprintf("Câu %d", start+i+1)
		}
		fmt.Fprintf(&b, "**%s:**\n\n", number)

		if q.Material != "" {
			fmt.Fprintf(&b, "*Tư liệu:* %s\n\n", q.Material)
		}

		fmt.Fprintf(&b, "a) %s\n\n", orDefault(q.Options.A, "(Chưa có nội dung)"))
		fmt.Fprintf(&b, "b) %s\n\n", orDefault(q.Options.B, "(Chưa có nội dung)"))
		fmt.Fprintf(&b, "c) %s\n\n", orDefault(q.Options.C, "(Chưa có nội dung)"))
		fmt.Fprintf(&b, "d) %s\n\n", orDefault(q.Options.D, "(Chưa có nội dung)"))

		b.WriteString("**Đáp án:**\n\n")
		fmt.Fprintf(&b, "- a) %s\n", orDefault(q.Answers.A, "Đ"))
		fmt.Fprintf(&b, "- b) %s\n", orDefault(q.Answers.B, "S"))
		fmt.Fprintf(&b, "- c) %s\n", orDefault(q.Answers.C, "Đ"))
		fmt.Fprintf(&b, "- d) %s", orDefault(q.Answers.D, "S"))
	}
	return b.String()
}

// groundedHeading prefixes grounded theory replies so the user always sees
// which lesson the answer came from.
func groundedHeading(grade, lesson int, title string) string {
	return fmt.Sprintf("# Bài %d (Lớp %d): %s", lesson, grade, title)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
